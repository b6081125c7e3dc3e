// Package config reads runtime settings from a .env file and the
// environment. Everything has a local-development default.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the HTTP base of the room service; the websocket target
	// is derived from it.
	ServerURL string
	// ListenAddr is where the relay binary binds.
	ListenAddr string
}

func Load() Config {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	return Config{
		ServerURL:  getenv("CTF_SERVER_URL", "http://localhost:8000"),
		ListenAddr: getenv("CTF_LISTEN_ADDR", ":8000"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
