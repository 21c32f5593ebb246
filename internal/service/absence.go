// internal/service/absence.go
package service

import (
	"errors"
	"fmt"
	"time"

	"tap-timebutler/internal/models"
)

// ErrInvalidDateRange means a span has a malformed, missing or inverted date range.
var ErrInvalidDateRange = errors.New("invalid date range")

// MaxSpanDays bounds a single span; longer ranges are treated as data-entry errors.
const MaxSpanDays = 3 * 366

// DateSpanExpander turns one absence span into one record per calendar day.
type DateSpanExpander struct {
	classifier *AbsenceTypeClassifier
}

func NewDateSpanExpander(classifier *AbsenceTypeClassifier) *DateSpanExpander {
	return &DateSpanExpander{classifier: classifier}
}

// Expand returns the daily records of span in ascending date order.
// Day k gets id = span id + k; every record is an independent copy.
func (e *DateSpanExpander) Expand(span models.Record) ([]models.Record, error) {
	baseID, err := span.Int(models.FieldID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	from, err := parseSpanDate(span, models.FieldDayFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: span %d: %v", ErrInvalidDateRange, baseID, err)
	}
	to, err := parseSpanDate(span, models.FieldDayTo)
	if err != nil {
		return nil, fmt.Errorf("%w: span %d: %v", ErrInvalidDateRange, baseID, err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: span %d: %s is after %s", ErrInvalidDateRange, baseID,
			from.Format(models.SpanDateFormat), to.Format(models.SpanDateFormat))
	}

	label, _ := span.String(models.FieldAbsenceType)
	class, err := e.classifier.Lookup(label)
	if err != nil {
		return nil, fmt.Errorf("span %d: %w", baseID, err)
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxSpanDays {
		return nil, fmt.Errorf("%w: span %d covers %d days, more than %d", ErrInvalidDateRange, baseID, days, MaxSpanDays)
	}
	out := make([]models.Record, 0, days)
	k := int64(0)
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		rec := span.Clone()
		rec[models.FieldID] = baseID + k
		rec[models.FieldSourceID] = baseID
		rec[models.FieldTheDay] = date.Format(models.TheDayFormat)
		rec[models.FieldAbsenceShorthandle] = class.Shorthandle
		rec[models.FieldAbsenceID] = class.ID
		out = append(out, rec)
		k++
	}
	return out, nil
}

func parseSpanDate(span models.Record, field string) (time.Time, error) {
	raw, ok := span.String(field)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is missing", field)
	}
	t, err := time.ParseInLocation(models.SpanDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s=%q is not DD/MM/YYYY", field, raw)
	}
	return t, nil
}
