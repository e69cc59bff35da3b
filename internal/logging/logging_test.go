package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Cyclone1070/gearsearch/internal/logging"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(logging.Config{Level: "warn", Format: "json"}, &buf)
		logger.Info().Msg("hidden")
		logger.Warn().Str("provider", "scrape").Msg("shown")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("not json: %v", err)
		}
		if entry["message"] != "shown" || entry["provider"] != "scrape" || entry["level"] != "warn" {
			t.Errorf("unexpected entry %v", entry)
		}
		if _, ok := entry["time"]; !ok {
			t.Error("entry has no timestamp")
		}
	})

	t.Run("console is human readable", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(logging.Config{Level: "", Format: "console"}, &buf)
		logger.Debug().Msg("hidden")
		logger.Info().Msg("server started")

		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "server started") || strings.HasPrefix(out, "{") {
			t.Errorf("unexpected console output %q", out)
		}
	})
}
