// internal/models/absence_period.go
package models

// Field names shared by absence spans, daily absence records and holiday records.
const (
	FieldID                 = "id"
	FieldSourceID           = "source_id"
	FieldDayFrom            = "day_from"
	FieldDayTo              = "day_to"
	FieldTheDay             = "the_day"
	FieldAbsenceType        = "absence_type"
	FieldAbsenceShorthandle = "absence_shorthandle"
	FieldAbsenceID          = "absence_id"
	FieldComment            = "comment"
)

// Date layouts used by the Timebutler feed and by the emitted records.
const (
	SpanDateLayout  = "2/1/2006"
	SpanDateFormat  = "02/01/2006"
	TheDayFormat    = "02.01.2006"
	HolidayIDFormat = "20060102"
)

// AbsenceTypePublicHoliday is the label every merged holiday is classified under.
const AbsenceTypePublicHoliday = "Feiertag"
