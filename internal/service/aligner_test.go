package service

import (
	"errors"
	"testing"

	"tap-timebutler/pkg/timebutler"
)

func TestAlign(t *testing.T) {
	props := []string{"id", "name", "comment"}
	rec, err := FieldAligner{}.Align(props, timebutler.RawRow{" 7 ", "Anna", "  "})
	if err != nil {
		t.Fatalf("Align error: %v", err)
	}
	if rec["id"] != "7" {
		t.Fatalf("id = %#v, want \"7\"", rec["id"])
	}
	if rec["name"] != "Anna" {
		t.Fatalf("name = %#v", rec["name"])
	}
	v, ok := rec["comment"]
	if !ok || v != nil {
		t.Fatalf("blank cell should map to nil, got %#v (present=%v)", v, ok)
	}
	if len(rec) != len(props) {
		t.Fatalf("len = %d, want %d", len(rec), len(props))
	}
}

func TestAlignCountMismatch(t *testing.T) {
	props := []string{"a", "b"}
	rows := []timebutler.RawRow{
		{"1"},
		{"1", "2", "3"},
		{},
	}
	for _, row := range rows {
		if _, err := (FieldAligner{}).Align(props, row); !errors.Is(err, ErrFieldCountMismatch) {
			t.Fatalf("Align(%v) err = %v, want ErrFieldCountMismatch", row, err)
		}
	}
}

func TestAlignEmpty(t *testing.T) {
	rec, err := FieldAligner{}.Align(nil, nil)
	if err != nil {
		t.Fatalf("Align error: %v", err)
	}
	if len(rec) != 0 {
		t.Fatalf("expected empty record, got %v", rec)
	}
}
