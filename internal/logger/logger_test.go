package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func resetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
}

func TestSlogBridge_CarriesContextFields(t *testing.T) {
	resetLevel(t)
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Component: "session"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUploadID(ctx, "up-9")
	ctx = WithLayerID(ctx, 3)
	log.InfoContext(ctx, "layer ingested", "accepted", 10, "kind", "point")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	want := map[string]any{
		"msg":        "layer ingested",
		"level":      "info",
		"component":  "session",
		"request_id": "req-1",
		"upload_id":  "up-9",
		"layer_id":   "3",
		"kind":       "point",
		"accepted":   float64(10),
	}
	for k, v := range want {
		if line[k] != v {
			t.Fatalf("%s=%v want %v (line %s)", k, line[k], v, buf.String())
		}
	}
}

func TestSlogBridge_RespectsLevel(t *testing.T) {
	resetLevel(t)
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)
	log.Info("quiet")
	log.Debug("quieter")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	log.Warn("loud")
	if buf.Len() == 0 {
		t.Fatalf("warn was dropped")
	}
}

func TestWithLayerID_IgnoresZero(t *testing.T) {
	ctx := WithLayerID(context.Background(), 0)
	if ctx.Value(ctxLayerID) != nil {
		t.Fatalf("zero layer id must not be attached")
	}
	if RequestID(WithRequestID(context.Background(), "")) == "" {
		t.Fatalf("empty request id should be generated")
	}
}
