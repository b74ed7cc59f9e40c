package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		configured LogLevel
		logged     LogLevel
		want       bool
	}{
		{"debug passes at debug", DebugLevel, DebugLevel, true},
		{"debug dropped at info", InfoLevel, DebugLevel, false},
		{"info passes at info", InfoLevel, InfoLevel, true},
		{"warn passes at info", InfoLevel, WarnLevel, true},
		{"info dropped at error", ErrorLevel, InfoLevel, false},
		{"error always passes", ErrorLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(Config{Format: HumanFormat, Level: tt.configured, Output: &buf})
			logger.log(tt.logged, "message", nil)

			got := buf.Len() > 0
			if got != tt.want {
				t.Errorf("level %s at config %s: logged=%v, want %v", tt.logged, tt.configured, got, tt.want)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("run complete", map[string]interface{}{
		"coherence": 0.42,
		"runId":     "abc",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["message"] != "run complete" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields missing")
	}
	if fields["coherence"] != 0.42 {
		t.Errorf("coherence field = %v", fields["coherence"])
	}
}

func TestHumanFormatStableFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("msg", map[string]interface{}{"zeta": 1, "alpha": 2, "mid": 3})

	out := buf.String()
	ia := strings.Index(out, "alpha=")
	im := strings.Index(out, "mid=")
	iz := strings.Index(out, "zeta=")
	if ia < 0 || im < 0 || iz < 0 {
		t.Fatalf("fields missing from output: %s", out)
	}
	if !(ia < im && im < iz) {
		t.Errorf("fields not in sorted order: %s", out)
	}
}

func TestDefaultsApplied(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Output: &buf})

	logger.Debug("should be dropped at default info level", nil)
	if buf.Len() != 0 {
		t.Errorf("debug message logged at default level: %s", buf.String())
	}

	logger.Info("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Error("info message not logged at default level")
	}
}
