// Package config reads settings from the environment, loading a local .env
// file first when one is present.
package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// Config returns the value of the given environment key.
func Config(key string) string {
	loadOnce.Do(func() {
		// missing .env is fine, real deployments set the environment directly
		_ = godotenv.Load(".env")
	})
	return os.Getenv(key)
}
