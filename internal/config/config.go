// Package config loads runtime settings from the environment and the scan
// target list from a repos file.
package config

import (
	"os"
	"strconv"
)

// Config carries everything read from the environment. Persistence and
// upload targets are optional; an empty DatabaseURL or S3Endpoint disables
// that sink.
type Config struct {
	NGCAPIKey     string
	GitHubToken   string
	NGCOrgID      string
	RegistryBase  string
	NVCFBase      string
	PublishersURL string

	DatabaseURL string

	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	S3Region      string
	ReportsBucket string

	Workers int
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load reads the environment. It never fails; every setting is optional
// and validated at the point of use.
func Load() Config {
	return Config{
		NGCAPIKey:     os.Getenv("NVIDIA_API_KEY"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		NGCOrgID:      os.Getenv("NGC_ORG_ID"),
		RegistryBase:  os.Getenv("NGC_REGISTRY_URL"),
		NVCFBase:      os.Getenv("NVCF_API_URL"),
		PublishersURL: os.Getenv("NIM_PUBLISHERS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:      getBool("S3_USE_SSL", false),
		S3Region:      os.Getenv("S3_REGION"),
		ReportsBucket: os.Getenv("REPORTS_BUCKET"),
		Workers:       getInt("SCAN_WORKERS", 0),
	}
}
