package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func GetEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

func GetEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// GetEnvMap parses a comma-separated list of key=value pairs. Entries without
// "=" are skipped.
func GetEnvMap(key, fallback string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(GetEnv(key, fallback), ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		m[k] = strings.TrimSpace(v)
	}
	return m
}
