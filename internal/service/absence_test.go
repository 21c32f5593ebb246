package service

import (
	"errors"
	"testing"
	"time"

	"tap-timebutler/internal/models"
)

func span(id, from, to, label string) models.Record {
	return models.Record{
		models.FieldID:          id,
		models.FieldDayFrom:     from,
		models.FieldDayTo:       to,
		models.FieldAbsenceType: label,
		"user_id":               "42",
		models.FieldComment:     "trip",
	}
}

func TestExpandThreeDays(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())
	days, err := e.Expand(span("500", "01/03/2021", "03/03/2021", "Vacation"))
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	want := []struct {
		id  int64
		day string
	}{
		{500, "01.03.2021"},
		{501, "02.03.2021"},
		{502, "03.03.2021"},
	}
	if len(days) != len(want) {
		t.Fatalf("got %d records, want %d", len(days), len(want))
	}
	for i, w := range want {
		d := days[i]
		if d[models.FieldID] != w.id || d[models.FieldTheDay] != w.day {
			t.Fatalf("day %d = id %v the_day %v, want %d %s", i, d[models.FieldID], d[models.FieldTheDay], w.id, w.day)
		}
		if d[models.FieldSourceID] != int64(500) {
			t.Fatalf("day %d source_id = %v", i, d[models.FieldSourceID])
		}
		if d[models.FieldAbsenceShorthandle] != "URL" || d[models.FieldAbsenceID] != int64(101) {
			t.Fatalf("day %d class = %v/%v", i, d[models.FieldAbsenceShorthandle], d[models.FieldAbsenceID])
		}
		if d["user_id"] != "42" || d[models.FieldComment] != "trip" {
			t.Fatalf("day %d lost span fields: %v", i, d)
		}
	}
}

func TestExpandSingleDay(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())
	days, err := e.Expand(span("9", "5/1/2022", "5/1/2022", "Krankheit"))
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(days) != 1 || days[0][models.FieldID] != int64(9) || days[0][models.FieldTheDay] != "05.01.2022" {
		t.Fatalf("unexpected records: %v", days)
	}
}

func TestExpandCrossesMonthEnd(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())

	tests := []struct {
		name string
		from string
		to   string
		days []string
	}{
		{"non-leap February", "28/02/2021", "02/03/2021", []string{"28.02.2021", "01.03.2021", "02.03.2021"}},
		{"leap February", "28/02/2024", "01/03/2024", []string{"28.02.2024", "29.02.2024", "01.03.2024"}},
		{"year end", "31/12/2020", "01/01/2021", []string{"31.12.2020", "01.01.2021"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Expand(span("1", tt.from, tt.to, "Urlaub"))
			if err != nil {
				t.Fatalf("Expand error: %v", err)
			}
			if len(got) != len(tt.days) {
				t.Fatalf("got %d days, want %d", len(got), len(tt.days))
			}
			for i, d := range tt.days {
				if got[i][models.FieldTheDay] != d {
					t.Fatalf("day %d = %v, want %s", i, got[i][models.FieldTheDay], d)
				}
			}
		})
	}
}

func TestExpandContiguous(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())
	days, err := e.Expand(span("1000", "20/12/2023", "10/01/2024", "Vacation"))
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(days) != 22 {
		t.Fatalf("got %d days, want 22", len(days))
	}
	var prev time.Time
	for i, d := range days {
		day, err := time.Parse(models.TheDayFormat, d[models.FieldTheDay].(string))
		if err != nil {
			t.Fatalf("bad the_day %v", d[models.FieldTheDay])
		}
		if i > 0 && !day.Equal(prev.AddDate(0, 0, 1)) {
			t.Fatalf("gap between %s and %s", prev, day)
		}
		if d[models.FieldID] != int64(1000+i) {
			t.Fatalf("day %d id = %v", i, d[models.FieldID])
		}
		prev = day
	}
}

func TestExpandRecordsAreIndependent(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())
	src := span("1", "01/01/2021", "02/01/2021", "Vacation")
	src["tags"] = []any{"a"}
	days, err := e.Expand(src)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	days[0][models.FieldComment] = "changed"
	days[0]["tags"].([]any)[0] = "b"
	if days[1][models.FieldComment] != "trip" || days[1]["tags"].([]any)[0] != "a" {
		t.Fatalf("records share state: %v", days[1])
	}
	if src[models.FieldID] != "1" || src[models.FieldTheDay] != nil {
		t.Fatalf("span was mutated: %v", src)
	}
}

func TestExpandErrors(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())

	tests := []struct {
		name string
		rec  models.Record
		want error
	}{
		{"inverted", span("1", "03/03/2021", "01/03/2021", "Vacation"), ErrInvalidDateRange},
		{"bad from", span("1", "2021-03-01", "01/03/2021", "Vacation"), ErrInvalidDateRange},
		{"missing to", models.Record{models.FieldID: "1", models.FieldDayFrom: "01/03/2021", models.FieldAbsenceType: "Vacation"}, ErrInvalidDateRange},
		{"missing id", models.Record{models.FieldDayFrom: "01/03/2021", models.FieldDayTo: "01/03/2021", models.FieldAbsenceType: "Vacation"}, ErrInvalidDateRange},
		{"impossible date", span("1", "31/02/2021", "01/03/2021", "Vacation"), ErrInvalidDateRange},
		{"absurd length", span("1", "01/01/2021", "31/12/9999", "Vacation"), ErrInvalidDateRange},
		{"unknown label", span("1", "01/03/2021", "01/03/2021", "Sabbatical"), ErrUnknownAbsenceType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Expand(tt.rec); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpandLongestAllowedSpan(t *testing.T) {
	e := NewDateSpanExpander(NewAbsenceTypeClassifier())
	from := date(2020, 1, 1)
	to := from.AddDate(0, 0, MaxSpanDays-1)
	days, err := e.Expand(span("1", from.Format(models.SpanDateFormat), to.Format(models.SpanDateFormat), "Elternzeit"))
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(days) != MaxSpanDays {
		t.Fatalf("got %d days, want %d", len(days), MaxSpanDays)
	}

	to = to.AddDate(0, 0, 1)
	if _, err := e.Expand(span("1", from.Format(models.SpanDateFormat), to.Format(models.SpanDateFormat), "Elternzeit")); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("err = %v, want ErrInvalidDateRange", err)
	}
}
