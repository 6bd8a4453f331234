package service

import (
	"fmt"
	"math/rand"
	"time"
)

var signalDirections = []string{"CALL", "PUT"}

// GenerateSignal renders the signal text for one asset. Direction and entry
// delay are randomized; the entry time is formatted in the timezone carried
// by now.
func GenerateSignal(asset string, now time.Time) string {
	direction := signalDirections[rand.Intn(len(signalDirections))]
	entry := now.Add(time.Duration(1+rand.Intn(2)) * time.Minute)
	return fmt.Sprintf("📊 Signal: %s ➚ %s %s", asset, entry.Format("15:04"), direction)
}
