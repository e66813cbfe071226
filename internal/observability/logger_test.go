package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(models.LogConfig{Level: "debug", Format: "json"}, &buf)

	log.WithField("project_id", "villa").Debug("detection started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if entry["project_id"] != "villa" || entry["msg"] != "detection started" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(models.LogConfig{Level: "nonsense"}, &buf)

	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %s, want info", log.GetLevel())
	}
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
