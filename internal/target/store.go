package target

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"tap-timebutler/internal/models"
	"tap-timebutler/internal/repository"
	"tap-timebutler/internal/schema"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StoreTarget persists records and state into the database behind the repositories.
// Records are upserted on their stream's key properties. Every run re-extracts a
// stream in full, so once its state is persisted the rows that run did not write
// are swept.
type StoreTarget struct {
	records   repository.RecordRepository
	bookmarks repository.BookmarkRepository
	keys      map[string][]string
	runs      map[string]string
	pending   []string
	logger    *logrus.Logger
}

func NewStoreTarget(records repository.RecordRepository, bookmarks repository.BookmarkRepository, logger *logrus.Logger) *StoreTarget {
	return &StoreTarget{
		records:   records,
		bookmarks: bookmarks,
		keys:      make(map[string][]string),
		runs:      make(map[string]string),
		logger:    logger,
	}
}

func (t *StoreTarget) WriteSchema(stream string, d *schema.Descriptor, keyProperties []string) error {
	if len(keyProperties) == 0 {
		return fmt.Errorf("stream %s has no key properties", stream)
	}
	for _, k := range keyProperties {
		if _, ok := d.Property(k); !ok {
			return fmt.Errorf("stream %s: key property %s is not in the schema", stream, k)
		}
	}
	t.keys[stream] = keyProperties
	if !slices.Contains(t.pending, stream) {
		t.pending = append(t.pending, stream)
	}
	t.runs[stream] = uuid.NewString()
	t.logger.WithFields(logrus.Fields{
		"stream": stream,
		"keys":   strings.Join(keyProperties, ","),
	}).Debug("Registered stream")
	return nil
}

func (t *StoreTarget) WriteRecord(stream string, rec models.Record, extractedAt time.Time) error {
	keys, ok := t.keys[stream]
	if !ok {
		return fmt.Errorf("record for stream %s before its schema", stream)
	}
	key := recordKey(rec, keys)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("stream %s: failed to encode record %s: %w", stream, key, err)
	}
	return t.records.Upsert(&models.StoredRecord{
		Stream:      stream,
		RecordKey:   key,
		Payload:     string(payload),
		SyncRun:     t.runs[stream],
		ExtractedAt: extractedAt.UTC(),
	})
}

// LoadState rebuilds the state from the stored bookmarks.
func (t *StoreTarget) LoadState() (models.State, error) {
	bookmarks, err := t.bookmarks.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	state := make(models.State, len(bookmarks))
	for _, b := range bookmarks {
		var v any
		if err := json.Unmarshal([]byte(b.Value), &v); err != nil {
			return nil, fmt.Errorf("bookmark %s: %w", b.Key, err)
		}
		state[b.Key] = v
	}
	return state, nil
}

// PersistState sweeps the streams completed since the last call, then saves the bookmarks.
func (t *StoreTarget) PersistState(state models.State) error {
	for _, stream := range t.pending {
		if err := t.sweep(stream); err != nil {
			return err
		}
	}
	t.pending = t.pending[:0]

	for k, v := range state {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("bookmark %s: %w", k, err)
		}
		if err := t.bookmarks.Save(k, string(data)); err != nil {
			return fmt.Errorf("failed to save bookmark %s: %w", k, err)
		}
	}
	return nil
}

func (t *StoreTarget) sweep(stream string) error {
	removed, err := t.records.DeleteStale(stream, t.runs[stream])
	if err != nil {
		return fmt.Errorf("stream %s: failed to remove stale records: %w", stream, err)
	}
	kept, err := t.records.CountByStream(stream)
	if err != nil {
		return fmt.Errorf("stream %s: failed to count records: %w", stream, err)
	}
	t.logger.WithFields(logrus.Fields{
		"stream":  stream,
		"removed": removed,
		"stored":  kept,
	}).Info("Stored stream")
	return nil
}

// recordKey joins the key property values with "|". A null part becomes an
// empty segment, so its position in the key stays stable.
func recordKey(rec models.Record, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i], _ = rec.String(k)
	}
	return strings.Join(parts, "|")
}
