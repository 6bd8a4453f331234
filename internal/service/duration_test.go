package service

import (
	"errors"
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		token   string
		wantTTL time.Duration
		perm    bool
		wantErr bool
	}{
		{token: "3h", wantTTL: 3 * time.Hour},
		{token: "1d", wantTTL: 24 * time.Hour},
		{token: "2w", wantTTL: 14 * 24 * time.Hour},
		{token: "0h", wantTTL: 0},
		{token: "perm", perm: true},
		{token: "abc", wantErr: true},
		{token: "5x", wantErr: true},
		{token: "-2d", wantErr: true},
		{token: "h", wantErr: true},
		{token: "", wantErr: true},
		{token: "perm ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseExpiry(tc.token)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("%q: expected ErrInvalidDuration, got %v", tc.token, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.token, err)
		}
		if got.Permanent != tc.perm || got.TTL != tc.wantTTL {
			t.Fatalf("%q: unexpected policy %+v", tc.token, got)
		}
	}
}
