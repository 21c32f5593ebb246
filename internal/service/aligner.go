package service

import (
	"errors"
	"fmt"
	"strings"

	"tap-timebutler/internal/models"
	"tap-timebutler/pkg/timebutler"
)

// ErrFieldCountMismatch means a row does not carry one cell per schema property.
var ErrFieldCountMismatch = errors.New("field count mismatch")

// FieldAligner maps positional cells onto schema property names.
type FieldAligner struct{}

// Align pairs properties[i] with cells[i]. Cells are trimmed and blanks become nil.
// A row with more or fewer cells than properties is rejected rather than truncated.
func (FieldAligner) Align(properties []string, cells timebutler.RawRow) (models.Record, error) {
	if len(cells) != len(properties) {
		return nil, fmt.Errorf("%w: got %d cells for %d properties", ErrFieldCountMismatch, len(cells), len(properties))
	}

	rec := make(models.Record, len(properties))
	for i, name := range properties {
		rec[name] = normalizeCell(cells[i])
	}
	return rec, nil
}

func normalizeCell(c string) any {
	c = strings.TrimSpace(c)
	if c == "" {
		return nil
	}
	return c
}
