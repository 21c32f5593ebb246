package service

import (
	"errors"
	"fmt"

	"tap-timebutler/internal/models"
)

// ErrUnknownAbsenceType means the feed sent a label missing from the table,
// which signals an upstream vocabulary change.
var ErrUnknownAbsenceType = errors.New("unknown absence type")

// AbsenceClass is the canonical classification of an absence label.
type AbsenceClass struct {
	Shorthandle string
	ID          int64
}

// absenceTypes maps every accepted label to its class. Timebutler exports
// labels in the account language, so German and English spellings both appear.
var absenceTypes = []struct {
	labels []string
	class  AbsenceClass
}{
	{[]string{"Vacation", "Urlaub"}, AbsenceClass{"URL", 101}},
	{[]string{"Sickness", "Krankheit"}, AbsenceClass{"KRA", 102}},
	{[]string{"Feiertag", "Public holiday"}, AbsenceClass{"FEI", 103}},
	{[]string{"Berufsschule/Uni", "Vocational school/University"}, AbsenceClass{"BSU", 104}},
	{[]string{"Un", "Unbezahlter Urlaub", "Unpaid leave"}, AbsenceClass{"UNB", 105}},
	{[]string{"miscellaneous", "Sonstiges"}, AbsenceClass{"SON", 106}},
	{[]string{"Overtime reduction", "Überstundenabbau"}, AbsenceClass{"UEA", 107}},
	{[]string{"Parental leave", "Elternzeit"}, AbsenceClass{"ELZ", 108}},
	{[]string{"Special leave", "Sonderurlaub"}, AbsenceClass{"SUR", 109}},
	{[]string{"Child sick", "Kind krank"}, AbsenceClass{"KIK", 110}},
	{[]string{"Business trip", "Dienstreise"}, AbsenceClass{"DRE", 111}},
	{[]string{"Home office", "Homeoffice"}, AbsenceClass{"HOF", 112}},
}

// AbsenceTypeClassifier resolves free-text absence labels. It is immutable once built.
type AbsenceTypeClassifier struct {
	byLabel map[string]AbsenceClass
}

func NewAbsenceTypeClassifier() *AbsenceTypeClassifier {
	c := &AbsenceTypeClassifier{byLabel: make(map[string]AbsenceClass)}
	for _, entry := range absenceTypes {
		for _, label := range entry.labels {
			c.byLabel[label] = entry.class
		}
	}
	return c
}

// Lookup returns the class for an exact label.
func (c *AbsenceTypeClassifier) Lookup(label string) (AbsenceClass, error) {
	class, ok := c.byLabel[label]
	if !ok {
		return AbsenceClass{}, fmt.Errorf("%w: %q", ErrUnknownAbsenceType, label)
	}
	return class, nil
}

// Classify returns one attribute of the label's class: absence_shorthandle or absence_id.
func (c *AbsenceTypeClassifier) Classify(label, field string) (any, error) {
	class, err := c.Lookup(label)
	if err != nil {
		return nil, err
	}
	switch field {
	case models.FieldAbsenceShorthandle:
		return class.Shorthandle, nil
	case models.FieldAbsenceID:
		return class.ID, nil
	default:
		return nil, fmt.Errorf("%w: no field %q for label %q", ErrUnknownAbsenceType, field, label)
	}
}

// Labels lists every accepted label.
func (c *AbsenceTypeClassifier) Labels() []string {
	out := make([]string, 0, len(c.byLabel))
	for _, entry := range absenceTypes {
		out = append(out, entry.labels...)
	}
	return out
}
