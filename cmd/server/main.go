//go:build !js && !wasm

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
)

const version = "0.1.0"

var (
	port           int
	dbPath         string
	tempDir        string
	settingsPath   string
	allowedOrigins string
	logLevel       string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SONICPRINT_DB_PATH", "sonicprint.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SONICPRINT_TEMP_DIR", os.TempDir()), "Temporary directory for uploads")
	flag.StringVar(&settingsPath, "settings", "", "JSON settings file")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(list string) []string {
	if list == "*" {
		return []string{"*"}
	}
	origins := strings.Split(list, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()

	log := logger.GetLogger()
	if level, ok := logger.ParseLevel(logLevel); ok {
		log.SetLevel(level)
	}

	settings := sonicprint.DefaultSettings()
	if settingsPath != "" {
		var err error
		if settings, err = sonicprint.LoadSettings(settingsPath); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
	}

	service, err := sonicprint.NewService(
		sonicprint.WithDBPath(dbPath),
		sonicprint.WithTempDir(tempDir),
		sonicprint.WithSettings(settings),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		AllowedOrigins: parseOrigins(allowedOrigins),
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
