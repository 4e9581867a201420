package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	c := FromEnv()
	if c.Addr != ":8090" || c.IngestChunkSize != 5000 || c.ClassifySampleRows != 1000 {
		t.Fatalf("defaults=%+v", c)
	}
	if c.MaxUploadBytes != 256<<20 || c.StyleCacheSize != 200_000 {
		t.Fatalf("limits=%d/%d", c.MaxUploadBytes, c.StyleCacheSize)
	}
	if c.DefaultLayerColor != "#3388ff" || c.DefaultLayerOpacity != 0.8 || c.DefaultPointSize != 5 || c.Basemap != "positron" {
		t.Fatalf("layer defaults=%+v", c)
	}
	if c.Metrics.Enabled || c.Metrics.Path != "/metrics" || c.ShutdownTimeout != 10*time.Second {
		t.Fatalf("metrics=%+v", c.Metrics)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("LOG_CONSOLE", "yes")
	t.Setenv("INGEST_CHUNK_SIZE", "64")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("BASEMAP", "Dark-Matter")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	c := FromEnv()
	if c.Addr != ":9999" || !c.Log.Console || c.IngestChunkSize != 64 || !c.Metrics.Enabled {
		t.Fatalf("cfg=%+v", c)
	}
	if c.Basemap != "dark-matter" || c.ShutdownTimeout != 3*time.Second {
		t.Fatalf("basemap=%q shutdown=%v", c.Basemap, c.ShutdownTimeout)
	}
}

func TestFromEnv_OutOfRangeFallsBack(t *testing.T) {
	t.Setenv("INGEST_CHUNK_SIZE", "-5")
	t.Setenv("DEFAULT_LAYER_OPACITY", "1.5")
	t.Setenv("DEFAULT_POINT_SIZE", "0")
	t.Setenv("MAX_UPLOAD_BYTES", "abc")
	t.Setenv("STYLE_CACHE_SIZE", "0")

	c := FromEnv()
	if c.IngestChunkSize != 5000 || c.DefaultLayerOpacity != 0.8 || c.DefaultPointSize != 5 {
		t.Fatalf("cfg=%+v", c)
	}
	if c.MaxUploadBytes != 256<<20 || c.StyleCacheSize != 200_000 {
		t.Fatalf("limits=%d/%d", c.MaxUploadBytes, c.StyleCacheSize)
	}
}
