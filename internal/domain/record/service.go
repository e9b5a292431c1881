package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/platform/metrics"
)

// Service owns every patient-record operation: load, save-tab
// (read-modify-write over the whole record), lock derivation, discharge
// stamping and .clinic export/import.
type Service struct {
	repo      Repository
	log       zerolog.Logger
	collector *metrics.Collector
	now       func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetMetrics attaches the Prometheus collector; without one the service
// simply does not count.
func (s *Service) SetMetrics(c *metrics.Collector) { s.collector = c }

// Load returns the stored record for a DNI. ErrNotFound starts the
// new-patient flow upstream; it is not a failure.
func (s *Service) Load(ctx context.Context, dni string) (PatientRecord, access.LockState, error) {
	rec, err := s.repo.Get(ctx, dni)
	if err != nil {
		return nil, access.LockState{}, err
	}
	return rec, access.ComputeLockState(rec.DischargeMillis(), s.now()), nil
}

// Lock recomputes the record's lock state. A DNI with no record is simply
// unlocked.
func (s *Service) Lock(ctx context.Context, dni string) (access.LockState, error) {
	rec, err := s.repo.Get(ctx, dni)
	if errors.Is(err, ErrNotFound) {
		return access.LockState{}, nil
	}
	if err != nil {
		return access.LockState{}, err
	}
	return access.ComputeLockState(rec.DischargeMillis(), s.now()), nil
}

// SaveTab collects the submitted form into the tab's document and persists
// it without touching sibling tabs: fetch the whole record, replace the one
// tab key, write the whole record back. Last writer wins at record
// granularity; no finer lock exists below the 24-hour discharge lock.
func (s *Service) SaveTab(ctx context.Context, dni string, tab TabID, form FormData) (TabDocument, error) {
	schema, ok := SchemaFor(tab)
	if !ok {
		return nil, &ValidationError{Field: "tab", Reason: fmt.Sprintf("pestaña desconocida: %s", tab)}
	}

	doc, err := Collect(schema, form)
	if err != nil {
		return nil, err
	}
	if got := strings.TrimSpace(doc.String("dni")); got != dni {
		return nil, &ValidationError{Field: "dni", Reason: fmt.Sprintf("el DNI del formulario (%s) no coincide con el registro (%s)", got, dni)}
	}

	rec, err := s.repo.Get(ctx, dni)
	if errors.Is(err, ErrNotFound) {
		rec = PatientRecord{}
	} else if err != nil {
		return nil, err
	}

	if access.ComputeLockState(rec.DischargeMillis(), s.now()).Locked {
		return nil, ErrLocked
	}

	rec.SetTab(tab, doc)
	if err := s.repo.Upsert(ctx, dni, rec); err != nil {
		return nil, err
	}

	if s.collector != nil {
		s.collector.RecordSavesTotal.Inc()
	}
	s.log.Info().Str("dni", dni).Str("tab", string(tab)).Msg("record saved")
	return doc, nil
}

// PopulateTab rebuilds the flat form values for one tab of a stored record.
func (s *Service) PopulateTab(ctx context.Context, dni string, tab TabID) (FormData, error) {
	schema, ok := SchemaFor(tab)
	if !ok {
		return FormData{}, &ValidationError{Field: "tab", Reason: fmt.Sprintf("pestaña desconocida: %s", tab)}
	}
	rec, err := s.repo.Get(ctx, dni)
	if err != nil {
		return FormData{}, err
	}
	return Populate(schema, rec.Tab(tab)), nil
}

// StampDischarge sets the discharge timestamp if absent. Calling it again
// is a no-op that returns the original stamp.
func (s *Service) StampDischarge(ctx context.Context, dni string) (time.Time, error) {
	effective, err := s.repo.SetDischargeIfAbsent(ctx, dni, s.now().UnixMilli())
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(effective), nil
}
