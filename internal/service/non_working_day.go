package service

import (
	"context"
	"fmt"
	"strconv"

	"tap-timebutler/internal/models"
	"tap-timebutler/pkg/holidays"

	"github.com/sirupsen/logrus"
)

// HolidayFeed supplies the public holidays of one year.
type HolidayFeed interface {
	FetchHolidays(ctx context.Context, year int) ([]holidays.PublicHoliday, error)
}

// HolidayMerger reshapes public holidays into daily absence records.
type HolidayMerger struct {
	feed       HolidayFeed
	classifier *AbsenceTypeClassifier
	region     string
	logger     *logrus.Logger
}

func NewHolidayMerger(feed HolidayFeed, classifier *AbsenceTypeClassifier, region string, logger *logrus.Logger) *HolidayMerger {
	return &HolidayMerger{
		feed:       feed,
		classifier: classifier,
		region:     region,
		logger:     logger,
	}
}

// Merge returns one record per holiday of year observed in the configured region.
// Feed errors are returned unchanged.
func (m *HolidayMerger) Merge(ctx context.Context, year int) ([]models.Record, error) {
	days, err := m.feed.FetchHolidays(ctx, year)
	if err != nil {
		return nil, err
	}

	class, err := m.classifier.Lookup(models.AbsenceTypePublicHoliday)
	if err != nil {
		return nil, err
	}

	kept := holidays.FilterByRegion(holidays.GetHolidaysForYear(days, year), m.region)
	seen := make(map[string]bool, len(kept))
	out := make([]models.Record, 0, len(kept))
	for _, h := range kept {
		theDay := h.Date.Format(models.TheDayFormat)
		if seen[theDay] {
			m.logger.WithFields(logrus.Fields{
				"year":    year,
				"the_day": theDay,
				"holiday": h.DisplayName(),
			}).Warn("Skipping second holiday on the same day")
			continue
		}
		seen[theDay] = true

		id, err := strconv.ParseInt(h.Date.Format(models.HolidayIDFormat), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("holiday id for %s: %w", theDay, err)
		}
		spanDate := h.Date.Format(models.SpanDateFormat)
		out = append(out, models.Record{
			models.FieldID:                 id,
			models.FieldSourceID:           int64(0),
			models.FieldTheDay:             theDay,
			models.FieldDayFrom:            spanDate,
			models.FieldDayTo:              spanDate,
			models.FieldAbsenceType:        models.AbsenceTypePublicHoliday,
			models.FieldAbsenceShorthandle: class.Shorthandle,
			models.FieldAbsenceID:          class.ID,
			models.FieldComment:            h.DisplayName(),
		})
	}

	m.logger.WithFields(logrus.Fields{
		"year":     year,
		"region":   m.region,
		"fetched":  len(days),
		"holidays": len(out),
	}).Debug("Merged public holidays")
	return out, nil
}
