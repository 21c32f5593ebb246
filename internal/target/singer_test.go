package target

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tap-timebutler/internal/models"
	"tap-timebutler/internal/schema"
)

func TestSingerTargetMessages(t *testing.T) {
	desc, err := schema.NewProvider().Load("projects")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	var buf bytes.Buffer
	tg := NewSingerTarget(&buf, "")
	if err := tg.WriteSchema("projects", desc, []string{"id"}); err != nil {
		t.Fatalf("WriteSchema error: %v", err)
	}
	extracted := time.Date(2021, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	if err := tg.WriteRecord("projects", models.Record{"id": int64(3), "name": "<Intern>"}, extracted); err != nil {
		t.Fatalf("WriteRecord error: %v", err)
	}
	if err := tg.PersistState(models.State{"projects": "2010-01-01"}); err != nil {
		t.Fatalf("PersistState error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	var msgs []map[string]any
	for _, l := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("line is not JSON: %s", l)
		}
		msgs = append(msgs, m)
	}

	if msgs[0]["type"] != "SCHEMA" || msgs[0]["stream"] != "projects" {
		t.Fatalf("schema message = %v", msgs[0])
	}
	if keys, _ := msgs[0]["key_properties"].([]any); len(keys) != 1 || keys[0] != "id" {
		t.Fatalf("key_properties = %v", msgs[0]["key_properties"])
	}
	if _, ok := msgs[0]["schema"].(map[string]any)["properties"]; !ok {
		t.Fatal("schema message carries no properties")
	}

	rec := msgs[1]
	if rec["type"] != "RECORD" || rec["time_extracted"] != "2021-03-01T11:00:00Z" {
		t.Fatalf("record message = %v", rec)
	}
	if !strings.Contains(lines[1], `"<Intern>"`) {
		t.Fatalf("html should not be escaped: %s", lines[1])
	}

	if msgs[2]["type"] != "STATE" || msgs[2]["value"].(map[string]any)["projects"] != "2010-01-01" {
		t.Fatalf("state message = %v", msgs[2])
	}
}

func TestSingerTargetLoadState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte(`{"users":"2020-01-01T00:00:00Z"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	state, err := NewSingerTarget(&bytes.Buffer{}, path).LoadState()
	if err != nil {
		t.Fatalf("LoadState error: %v", err)
	}
	if state["users"] != "2020-01-01T00:00:00Z" {
		t.Fatalf("state = %v", state)
	}

	empty, err := NewSingerTarget(&bytes.Buffer{}, "").LoadState()
	if err != nil || len(empty) != 0 {
		t.Fatalf("LoadState without file = %v, %v", empty, err)
	}

	if _, err := NewSingerTarget(&bytes.Buffer{}, filepath.Join(dir, "missing.json")).LoadState(); err == nil {
		t.Fatal("missing state file should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o600)
	if _, err := NewSingerTarget(&bytes.Buffer{}, bad).LoadState(); err == nil {
		t.Fatal("broken state file should fail")
	}
}
