package env

import (
	"os"

	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv reads a configuration value, preferring the loaded .env file over
// the process environment.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	// Docker and CI pass configuration through the process environment.
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the .env file from the project root. The binaries run
// either from the root or from their cmd/ directory.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	panic("No .env file found in any of the expected locations")
}

// IsDev reports whether the app runs in development mode. Relaxations like
// the unsigned webhook path are only allowed here.
func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
