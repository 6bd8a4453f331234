package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"
)

// DefaultAssets is the built-in channel catalog used when no ASSETS_FILE is
// configured. The catalog is stable for the process lifetime.
var DefaultAssets = []string{
	"USD/EGP", "BRL/USD", "USD/TRY", "USD/PKR", "USD/PHP", "USD/INR",
	"USD/ARS", "USD/MXN", "NZD/JPY", "USD/DZD", "USD/BDT", "USD/COP",
	"USD/BRL", "USD/NGN", "USD/ZAR", "USD/CHF", "NZD/CAD",
}

// Config holds runtime configuration loaded from the environment.
type Config struct {
	TelegramToken string
	AdminID       int64
	Timezone      string
	AssetsFile    string

	Assets   []string
	Location *time.Location
}

// FromEnv loads configuration from environment variables. TELEGRAM_TOKEN and
// ADMIN_ID are required. TIMEZONE defaults to Africa/Cairo. ASSETS_FILE
// optionally points at a JSON array overriding the built-in asset catalog.
func FromEnv() (*Config, error) {
	c := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Timezone:      os.Getenv("TIMEZONE"),
		AssetsFile:    os.Getenv("ASSETS_FILE"),
	}
	if c.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}
	admin := os.Getenv("ADMIN_ID")
	if admin == "" {
		return nil, errors.New("ADMIN_ID is not set")
	}
	id, err := strconv.ParseInt(admin, 10, 64)
	if err != nil {
		return nil, errors.New("ADMIN_ID must be a numeric Telegram user id")
	}
	c.AdminID = id
	if c.Timezone == "" {
		c.Timezone = "Africa/Cairo"
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, err
	}
	c.Location = loc
	if err := c.loadAssets(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadAssets() error {
	if c.AssetsFile == "" {
		c.Assets = append([]string(nil), DefaultAssets...)
		return nil
	}
	file, err := os.Open(c.AssetsFile)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(&c.Assets); err != nil {
		return err
	}
	if len(c.Assets) == 0 {
		return errors.New("assets file contains no assets")
	}
	return nil
}
