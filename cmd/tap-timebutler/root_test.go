package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tap-timebutler/internal/schema"
	"tap-timebutler/internal/service"

	"github.com/sirupsen/logrus"
)

func TestWriteCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCatalog(&buf, schema.NewProvider(), service.DefaultStreams()); err != nil {
		t.Fatalf("writeCatalog error: %v", err)
	}

	var cat catalog
	if err := json.Unmarshal(buf.Bytes(), &cat); err != nil {
		t.Fatalf("catalog is not JSON: %v", err)
	}
	if len(cat.Streams) != 7 {
		t.Fatalf("got %d streams, want 7", len(cat.Streams))
	}
	abs := cat.Streams[0]
	if abs.Stream != "absences" || strings.Join(abs.KeyProperties, ",") != "source_id,the_day" {
		t.Fatalf("absences entry = %+v", abs)
	}
	if _, ok := abs.Schema["properties"]; !ok {
		t.Fatal("absences schema has no properties")
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		verbose bool
		want    logrus.Level
		wantErr bool
	}{
		{"info", "text", false, logrus.InfoLevel, false},
		{"warn", "json", true, logrus.DebugLevel, false},
		{"loud", "text", false, 0, true},
		{"info", "xml", false, 0, true},
	}
	for _, tt := range tests {
		log := logrus.New()
		err := setupLogger(log, tt.level, tt.format, tt.verbose)
		if (err != nil) != tt.wantErr {
			t.Fatalf("setupLogger(%s, %s) err = %v", tt.level, tt.format, err)
		}
		if err == nil && log.GetLevel() != tt.want {
			t.Fatalf("level = %s, want %s", log.GetLevel(), tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "tap-timebutler ") {
		t.Fatalf("output = %q", out.String())
	}
}
