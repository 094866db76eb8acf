package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envValue reads key and converts it with parse. Unset, blank or
// unparseable values yield fallback.
func envValue[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsString(key string, defaultVal string) string {
	return envValue(key, defaultVal, func(s string) (string, error) { return s, nil })
}

func getEnvAsInt(key string, defaultVal int) int {
	return envValue(key, defaultVal, strconv.Atoi)
}

func getEnvAsBool(key string, defaultVal bool) bool {
	return envValue(key, defaultVal, strconv.ParseBool)
}

func getEnvAsTimeDuration(key string, defaultVal time.Duration) time.Duration {
	return envValue(key, defaultVal, parseDuration)
}

// parseDuration accepts Go durations ("250ms", "1h30m") and bare integers as seconds
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	return envValue(key, defaultVal, func(s string) ([]string, error) {
		var out []string
		for part := range strings.SplitSeq(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
}
