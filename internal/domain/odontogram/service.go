package odontogram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Metrics receives load and save outcomes. telemetry.TelemetryProvider
// implements it.
type Metrics interface {
	ObserveLoad(dentition string, err error)
	ObserveSave(dentition string, records int, took time.Duration, err error)
}

// ErrPatientRequired is returned for a chart key without a patient.
var ErrPatientRequired = errors.New("patient_id is required")

type Service struct {
	repo    ChartRepository
	logger  zerolog.Logger
	metrics Metrics

	mu    sync.Mutex
	locks map[ChartKey]*chartLock
}

type chartLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(repo ChartRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "odontogram").Logger(),
		locks:  make(map[ChartKey]*chartLock),
	}
}

func (s *Service) SetMetrics(m Metrics) { s.metrics = m }

// lock serializes load-modify-save cycles for one chart within this process.
// An entry lives only while a caller holds or waits for it.
func (s *Service) lock(key ChartKey) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &chartLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Load reads and decodes a chart. A patient with no stored records gets an
// empty chart.
func (s *Service) Load(ctx context.Context, key ChartKey) (*Chart, error) {
	if key.PatientID == uuid.Nil {
		return nil, ErrPatientRequired
	}
	records, err := s.repo.Load(ctx, key)
	if s.metrics != nil {
		s.metrics.ObserveLoad(string(key.Dentition), err)
	}
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}
	return Decode(key.Dentition, records), nil
}

// Open loads a chart and wraps it in a session that saves back through s.
func (s *Service) Open(ctx context.Context, patientID uuid.UUID, d Dentition) (*Session, error) {
	c, err := s.Load(ctx, ChartKey{PatientID: patientID, Dentition: d})
	if err != nil {
		return nil, err
	}
	return NewSession(patientID, c, s), nil
}

// SaveChart encodes the chart and replaces the stored record set in one step.
func (s *Service) SaveChart(ctx context.Context, patientID uuid.UUID, c *Chart) error {
	if patientID == uuid.Nil {
		return ErrPatientRequired
	}
	key := ChartKey{PatientID: patientID, Dentition: c.Dentition}
	records := Encode(c)
	if err := CheckConsistency(records); err != nil {
		return err
	}

	start := time.Now()
	err := s.repo.Replace(ctx, key, records)
	took := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveSave(string(key.Dentition), len(records), took, err)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("patient_id", patientID.String()).
			Str("dentition", string(key.Dentition)).
			Int("records", len(records)).
			Msg("chart save failed")
		return fmt.Errorf("replace chart records: %w", err)
	}
	s.logger.Info().
		Str("patient_id", patientID.String()).
		Str("dentition", string(key.Dentition)).
		Int("teeth", c.Len()).
		Int("records", len(records)).
		Dur("took", took).
		Msg("chart saved")
	return nil
}

// Edit runs fn against a freshly loaded session and saves the result. Edits
// to the same chart through this service run one at a time. When fn returns
// an error nothing is saved.
func (s *Service) Edit(ctx context.Context, key ChartKey, fn func(*Session) error) (*Session, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.Open(ctx, key.PatientID, key.Dentition)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if !sess.Dirty() {
		return sess, nil
	}
	if err := sess.Save(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Records returns the stored rows of a chart as they are persisted.
func (s *Service) Records(ctx context.Context, key ChartKey) ([]StoredRecord, error) {
	if key.PatientID == uuid.Nil {
		return nil, ErrPatientRequired
	}
	records, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load chart records: %w", err)
	}
	return records, nil
}

// Summary counts tooth-level conditions over the chart's dentition.
func (s *Service) Summary(ctx context.Context, key ChartKey, conds ...Condition) (Counts, error) {
	c, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Count(c, Teeth(key.Dentition), conds...), nil
}
