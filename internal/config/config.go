package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/sitepass.db"

	// Attachment Store
	AttachmentBaseURL    string // empty = in-memory store (dev)
	UploadTimeoutSeconds int

	// Gate reference data
	GatesFile string // YAML file; empty = dev seed gates

	// Stale-upload sweeper
	UploadStaleAfterHours int // 0 = sweeper disabled
	SweepIntervalMinutes  int
}

// FromEnv reads configuration from the environment, loading a .env file
// first when present (dev convenience; real deployments set env directly).
func FromEnv() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	env := strings.ToLower(getenvDefault("SITEPASS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: getenvDefault("SITEPASS_HTTP_ADDR", ":8080"),

		Env:    env,
		DBPath: getenvDefault("SITEPASS_DB_PATH", "./data/sitepass.db"),

		AttachmentBaseURL:    strings.TrimSpace(os.Getenv("SITEPASS_ATTACHMENT_URL")),
		UploadTimeoutSeconds: getenvInt("SITEPASS_UPLOAD_TIMEOUT_S", 15),

		GatesFile: strings.TrimSpace(os.Getenv("SITEPASS_GATES_FILE")),

		UploadStaleAfterHours: getenvInt("SITEPASS_UPLOAD_STALE_HOURS", 24),
		SweepIntervalMinutes:  getenvInt("SITEPASS_SWEEP_INTERVAL_MIN", 30),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
