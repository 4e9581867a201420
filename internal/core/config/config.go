package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Log             LogCfg
	Metrics         MetricsCfg

	IngestChunkSize    int
	ClassifySampleRows int
	MaxUploadBytes     int64
	StyleCacheSize     int

	DefaultLayerColor   string
	DefaultLayerOpacity float64
	DefaultPointSize    float64
	Basemap             string
}

func FromEnv() Config {
	opacity := getfloat("DEFAULT_LAYER_OPACITY", 0.8)
	if opacity < 0 || opacity > 1 {
		opacity = 0.8
	}
	pointSize := getfloat("DEFAULT_POINT_SIZE", 5)
	if pointSize <= 0 {
		pointSize = 5
	}

	return Config{
		Addr:            getenv("ADDR", ":8090"),
		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},

		IngestChunkSize:    positive(getint("INGEST_CHUNK_SIZE", 5000), 5000),
		ClassifySampleRows: positive(getint("CLASSIFY_SAMPLE_ROWS", 1000), 1000),
		MaxUploadBytes:     getint64("MAX_UPLOAD_BYTES", 256<<20),
		StyleCacheSize:     positive(getint("STYLE_CACHE_SIZE", 200_000), 200_000),

		DefaultLayerColor:   getenv("DEFAULT_LAYER_COLOR", "#3388ff"),
		DefaultLayerOpacity: opacity,
		DefaultPointSize:    pointSize,
		Basemap:             strings.ToLower(getenv("BASEMAP", "positron")),
	}
}

func positive(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
