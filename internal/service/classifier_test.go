package service

import (
	"errors"
	"testing"

	"tap-timebutler/internal/models"
)

func TestClassifierLookup(t *testing.T) {
	c := NewAbsenceTypeClassifier()

	tests := []struct {
		label string
		short string
		id    int64
	}{
		{"Vacation", "URL", 101},
		{"Urlaub", "URL", 101},
		{"Krankheit", "KRA", 102},
		{"Feiertag", "FEI", 103},
		{"Un", "UNB", 105},
		{"Home office", "HOF", 112},
	}
	for _, tt := range tests {
		class, err := c.Lookup(tt.label)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", tt.label, err)
		}
		if class.Shorthandle != tt.short || class.ID != tt.id {
			t.Fatalf("Lookup(%q) = %+v, want %s/%d", tt.label, class, tt.short, tt.id)
		}
	}
}

func TestClassifierUnknownLabel(t *testing.T) {
	c := NewAbsenceTypeClassifier()
	for _, label := range []string{"", "vacation", "Holiday"} {
		if _, err := c.Lookup(label); !errors.Is(err, ErrUnknownAbsenceType) {
			t.Fatalf("Lookup(%q) err = %v, want ErrUnknownAbsenceType", label, err)
		}
	}
}

func TestClassifierClassifyFields(t *testing.T) {
	c := NewAbsenceTypeClassifier()

	short, err := c.Classify("Vacation", models.FieldAbsenceShorthandle)
	if err != nil || short != "URL" {
		t.Fatalf("Classify shorthandle = %v, %v", short, err)
	}
	id, err := c.Classify("Vacation", models.FieldAbsenceID)
	if err != nil || id != int64(101) {
		t.Fatalf("Classify id = %v, %v", id, err)
	}
	if _, err := c.Classify("Vacation", "colour"); !errors.Is(err, ErrUnknownAbsenceType) {
		t.Fatalf("Classify with unknown field err = %v", err)
	}
}

func TestClassifierLabelsResolve(t *testing.T) {
	c := NewAbsenceTypeClassifier()
	labels := c.Labels()
	if len(labels) == 0 {
		t.Fatal("no labels")
	}
	for _, l := range labels {
		if _, err := c.Lookup(l); err != nil {
			t.Fatalf("label %q does not resolve: %v", l, err)
		}
	}
}
