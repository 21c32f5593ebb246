package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tap-timebutler/internal/models"
	"tap-timebutler/internal/schema"
	"tap-timebutler/pkg/timebutler"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultStartYear = 2010

// Target receives the output of a run.
type Target interface {
	WriteSchema(stream string, d *schema.Descriptor, keyProperties []string) error
	WriteRecord(stream string, rec models.Record, extractedAt time.Time) error
	LoadState() (models.State, error)
	PersistState(state models.State) error
}

// SchemaLoader resolves a stream name to its descriptor.
type SchemaLoader interface {
	Load(stream string) (*schema.Descriptor, error)
}

// StreamSpec describes how one stream is fetched and shaped.
type StreamSpec struct {
	Name          string
	PerYear       bool
	Expand        bool
	KeyProperties []string
}

// DefaultStreams returns the streams of a run, in emission order.
func DefaultStreams() []StreamSpec {
	return []StreamSpec{
		{Name: "absences", PerYear: true, Expand: true, KeyProperties: []string{models.FieldSourceID, models.FieldTheDay}},
		{Name: "users", KeyProperties: []string{"id"}},
		{Name: "holidayentitlement", PerYear: true, KeyProperties: []string{"user_id", "year"}},
		{Name: "workdays", KeyProperties: []string{"user_id", "valid_from"}},
		{Name: "worktime", KeyProperties: []string{"id"}},
		{Name: "projects", KeyProperties: []string{"id"}},
		{Name: "services", KeyProperties: []string{"id"}},
	}
}

type SyncConfig struct {
	StartDate     string
	StartYear     int
	HolidayRegion string
	Streams       []StreamSpec
	Now           func() time.Time
}

// StreamSummary counts what one stream emitted.
type StreamSummary struct {
	Stream     string
	Records    int
	Collisions int
}

// Summary describes a finished or aborted run.
type Summary struct {
	RunID    string
	Streams  []StreamSummary
	Duration time.Duration
	Err      error
}

func (s *Summary) Records() int {
	total := 0
	for _, st := range s.Streams {
		total += st.Records
	}
	return total
}

func (s *Summary) Collisions() int {
	total := 0
	for _, st := range s.Streams {
		total += st.Collisions
	}
	return total
}

func (s *Summary) String() string {
	var b strings.Builder
	if s.Err != nil {
		fmt.Fprintf(&b, "❌ Timebutler sync %s failed after %s\n", s.RunID, s.Duration.Round(time.Second))
	} else {
		fmt.Fprintf(&b, "✅ Timebutler sync %s finished in %s\n", s.RunID, s.Duration.Round(time.Second))
	}
	for _, st := range s.Streams {
		fmt.Fprintf(&b, "• %s: %d records", st.Stream, st.Records)
		if st.Collisions > 0 {
			fmt.Fprintf(&b, " (%d id collisions)", st.Collisions)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %d records", s.Records())
	if s.Err != nil {
		fmt.Fprintf(&b, "\nError: %v", s.Err)
	}
	return b.String()
}

// SyncService runs every configured stream from fetch to target.
type SyncService struct {
	transport timebutler.Transport
	schemas   SchemaLoader
	target    Target
	aligner   FieldAligner
	expander  *DateSpanExpander
	merger    *HolidayMerger
	sanitizer RecordSanitizer
	cfg       SyncConfig
	logger    *logrus.Logger
}

func NewSyncService(transport timebutler.Transport, schemas SchemaLoader, target Target, classifier *AbsenceTypeClassifier, cfg SyncConfig, logger *logrus.Logger) *SyncService {
	if cfg.StartYear == 0 {
		cfg.StartYear = DefaultStartYear
	}
	if cfg.Streams == nil {
		cfg.Streams = DefaultStreams()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SyncService{
		transport: transport,
		schemas:   schemas,
		target:    target,
		expander:  NewDateSpanExpander(classifier),
		merger:    NewHolidayMerger(transport, classifier, cfg.HolidayRegion, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run syncs the streams in order and stops at the first failure.
// The returned summary covers the streams that completed, plus the failing one.
func (s *SyncService) Run(ctx context.Context) (*Summary, error) {
	started := s.cfg.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", summary.RunID)

	finish := func(err error) (*Summary, error) {
		summary.Duration = s.cfg.Now().Sub(started)
		summary.Err = err
		return summary, err
	}

	state, err := s.target.LoadState()
	if err != nil {
		return finish(fmt.Errorf("failed to load state: %w", err))
	}
	if state == nil {
		state = models.State{}
	}

	log.WithField("streams", len(s.cfg.Streams)).Info("Starting sync")
	for _, spec := range s.cfg.Streams {
		st := StreamSummary{Stream: spec.Name}
		err := s.syncStream(ctx, log.WithField("stream", spec.Name), spec, state, &st)
		summary.Streams = append(summary.Streams, st)
		if err != nil {
			log.WithField("stream", spec.Name).WithError(err).Error("Stream failed")
			return finish(fmt.Errorf("stream %s: %w", spec.Name, err))
		}
	}

	summary, _ = finish(nil)
	log.WithFields(logrus.Fields{
		"records":    summary.Records(),
		"collisions": summary.Collisions(),
		"duration":   summary.Duration.String(),
	}).Info("Sync finished")
	return summary, nil
}

// streamRun carries the per-stream collision index across years.
type streamRun struct {
	spec  StreamSpec
	desc  *schema.Descriptor
	log   *logrus.Entry
	seen  map[int64]models.Record
	stats *StreamSummary
}

func (s *SyncService) syncStream(ctx context.Context, log *logrus.Entry, spec StreamSpec, state models.State, stats *StreamSummary) error {
	desc, err := s.schemas.Load(spec.Name)
	if err != nil {
		return err
	}
	if err := s.target.WriteSchema(spec.Name, desc, spec.KeyProperties); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	state.StartFor(spec.Name, s.cfg.StartDate)

	run := &streamRun{
		spec:  spec,
		desc:  desc,
		log:   log,
		seen:  make(map[int64]models.Record),
		stats: stats,
	}

	if spec.PerYear {
		for year := s.cfg.StartYear; year <= s.cfg.Now().Year(); year++ {
			if err := s.syncYear(ctx, run, year); err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
		}
	} else {
		records, err := s.fetch(ctx, run, nil)
		if err != nil {
			return err
		}
		if err := s.emit(run, records); err != nil {
			return err
		}
	}

	if err := s.target.PersistState(state); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	log.WithField("records", stats.Records).Info("Stream synced")
	return nil
}

func (s *SyncService) syncYear(ctx context.Context, run *streamRun, year int) error {
	yrun := *run
	yrun.log = run.log.WithField("year", year)

	if err := s.syncYearRecords(ctx, &yrun, year); err != nil {
		yrun.log.WithError(err).Error("Year failed")
		return err
	}
	return nil
}

func (s *SyncService) syncYearRecords(ctx context.Context, run *streamRun, year int) error {
	params := url.Values{"year": {strconv.Itoa(year)}}
	records, err := s.fetch(ctx, run, params)
	if err != nil {
		return err
	}
	if err := s.emit(run, records); err != nil {
		return err
	}

	if !run.spec.Expand {
		return nil
	}
	holidays, err := s.merger.Merge(ctx, year)
	if err != nil {
		return fmt.Errorf("failed to merge holidays: %w", err)
	}
	return s.emit(run, holidays)
}

// fetch pulls one request worth of rows and turns them into records,
// expanded to one per day when the stream asks for it.
func (s *SyncService) fetch(ctx context.Context, run *streamRun, params url.Values) ([]models.Record, error) {
	rows, err := s.transport.Fetch(ctx, run.spec.Name, params)
	if err != nil {
		return nil, err
	}
	run.log.WithField("rows", len(rows)).Debug("Fetched rows")

	props := run.desc.SourceProperties()
	out := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := s.aligner.Align(props, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !run.spec.Expand {
			out = append(out, rec)
			continue
		}
		days, err := s.expander.Expand(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, days...)
	}
	return out, nil
}

func (s *SyncService) emit(run *streamRun, records []models.Record) error {
	extractedAt := s.cfg.Now().UTC()
	for _, rec := range records {
		if run.spec.Expand {
			s.checkCollision(run, rec)
		}
		rec = s.sanitizer.Sanitize(rec, run.desc)
		out, err := schema.Transform(run.desc, rec)
		if err != nil {
			return err
		}
		if err := s.target.WriteRecord(run.spec.Name, out, extractedAt); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		run.stats.Records++
	}
	return nil
}

// checkCollision warns when a synthetic id was already handed to another record.
func (s *SyncService) checkCollision(run *streamRun, rec models.Record) {
	id, err := rec.Int(models.FieldID)
	if err != nil {
		return
	}
	prev, ok := run.seen[id]
	if !ok {
		run.seen[id] = models.Record{
			models.FieldSourceID: rec[models.FieldSourceID],
			models.FieldTheDay:   rec[models.FieldTheDay],
		}
		return
	}
	run.stats.Collisions++
	run.log.WithFields(logrus.Fields{
		"id":              id,
		"source_id":       rec[models.FieldSourceID],
		"the_day":         rec[models.FieldTheDay],
		"other_source_id": prev[models.FieldSourceID],
		"other_the_day":   prev[models.FieldTheDay],
	}).Warn("Synthetic id collision")
}
