// Package target holds the destinations a sync run writes to.
package target

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"tap-timebutler/internal/models"
	"tap-timebutler/internal/schema"
)

const (
	MessageSchema = "SCHEMA"
	MessageRecord = "RECORD"
	MessageState  = "STATE"
)

// Message is one line of the Singer stdout protocol.
type Message struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream,omitempty"`
	Schema        map[string]any `json:"schema,omitempty"`
	KeyProperties []string       `json:"key_properties,omitempty"`
	Record        any            `json:"record,omitempty"`
	TimeExtracted string         `json:"time_extracted,omitempty"`
	Value         any            `json:"value,omitempty"`
}

// SingerTarget writes newline-delimited Singer messages to w.
type SingerTarget struct {
	mu        sync.Mutex
	enc       *json.Encoder
	statePath string
}

// NewSingerTarget writes to w and reads the initial state from statePath, if set.
func NewSingerTarget(w io.Writer, statePath string) *SingerTarget {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &SingerTarget{enc: enc, statePath: statePath}
}

func (t *SingerTarget) WriteSchema(stream string, d *schema.Descriptor, keyProperties []string) error {
	return t.write(Message{
		Type:          MessageSchema,
		Stream:        stream,
		Schema:        d.Raw,
		KeyProperties: keyProperties,
	})
}

func (t *SingerTarget) WriteRecord(stream string, rec models.Record, extractedAt time.Time) error {
	return t.write(Message{
		Type:          MessageRecord,
		Stream:        stream,
		Record:        rec,
		TimeExtracted: extractedAt.UTC().Format(time.RFC3339),
	})
}

func (t *SingerTarget) PersistState(state models.State) error {
	if state == nil {
		state = models.State{}
	}
	return t.write(Message{Type: MessageState, Value: state})
}

// LoadState reads the state file. Without one the run starts from an empty state.
func (t *SingerTarget) LoadState() (models.State, error) {
	if t.statePath == "" {
		return models.State{}, nil
	}
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	state := models.State{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", t.statePath, err)
	}
	return state, nil
}

func (t *SingerTarget) write(m Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write %s message: %w", m.Type, err)
	}
	return nil
}
