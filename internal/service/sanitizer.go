package service

import (
	"tap-timebutler/internal/models"
	"tap-timebutler/internal/schema"
)

// RecordSanitizer drops null date-time properties, which coercion would reject.
type RecordSanitizer struct{}

// Sanitize removes, in place, every date-time property of d whose value is nil,
// and returns rec. Applying it twice changes nothing.
func (RecordSanitizer) Sanitize(rec models.Record, d *schema.Descriptor) models.Record {
	for _, name := range d.DateTimeProperties() {
		if v, ok := rec[name]; ok && v == nil {
			delete(rec, name)
		}
	}
	return rec
}
