package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"plate-service/internal/model"
	"plate-service/internal/remote"
)

// HotSheet is the cache surface the sync layer drives. Satisfied by
// watchlist.Cache.
type HotSheet interface {
	Refresh(ctx context.Context, plates []string) error
	Lookup(plateText string) (model.WatchlistEntry, bool)
	LastRefreshedAt() time.Time
	Len() int
}

// SyncService owns record transmission and watchlist synchronization. All
// send state transitions for a given record are serialized through a
// per-record lock, so a retry batch and a manual resend never interleave.
type SyncService struct {
	store       PlateStore
	dispatch    remote.Service
	hotSheet    HotSheet
	plates      *PlateService
	hotInterval time.Duration
	log         zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	reportMu   sync.Mutex
	lastReport *RefreshReport
	reports    chan RefreshReport
}

func NewSyncService(store PlateStore, dispatch remote.Service, hotSheet HotSheet, plates *PlateService, hotInterval time.Duration, log zerolog.Logger) *SyncService {
	return &SyncService{
		store:       store,
		dispatch:    dispatch,
		hotSheet:    hotSheet,
		plates:      plates,
		hotInterval: hotInterval,
		log:         log,
		locks:       make(map[int64]*sync.Mutex),
		reports:     make(chan RefreshReport, 1),
	}
}

// SendOutcome is the per-record result of a send attempt.
type SendOutcome struct {
	RecordID  int64           `json:"record_id"`
	SendState model.SendState `json:"send_state"`
	Error     string          `json:"error,omitempty"`
}

// RefreshReport summarizes one watchlist refresh cycle. WatchlistError is
// set when the fetch or persist failed and the previous snapshot was kept.
type RefreshReport struct {
	RefreshedAt    time.Time `json:"refreshed_at"`
	WatchlistError string    `json:"watchlist_error,omitempty"`
	Entries        int       `json:"entries"`
	Scanned        int       `json:"scanned"`
	ReEnriched     int       `json:"re_enriched"`
	DetailFailures int       `json:"detail_failures"`
}

func (s *SyncService) lockFor(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// SendRecord transmits one record to dispatch and persists the resulting
// state. A remote failure is an outcome, not an error: the record lands in
// send_failed and the updated record is returned. Resending an already
// sent record attempts again; success re-confirms Sent, failure demotes
// it to send_failed.
func (s *SyncService) SendRecord(ctx context.Context, id int64) (*model.PlateRecord, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plate record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}

	nextState := model.SendStateSent
	if sendErr := s.dispatch.SendRecord(ctx, record); sendErr != nil {
		nextState = model.SendStateSendFailed
		s.log.Warn().
			Err(sendErr).
			Int64("record_id", id).
			Str("plate", record.PlateText).
			Msg("failed to send record to dispatch")
	}

	rows, err := s.store.Update(ctx, id, map[string]interface{}{"send_state": nextState})
	if err != nil {
		return nil, fmt.Errorf("failed to persist send state: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}

	record.SendState = nextState
	if nextState == model.SendStateSent {
		s.log.Info().
			Int64("record_id", id).
			Str("plate", record.PlateText).
			Msg("record sent to dispatch")
	}
	return record, nil
}

// RetryFailed re-sends every record currently in send_failed. The batch is
// snapshotted up front, attempts run sequentially, and one failure never
// stops the rest.
func (s *SyncService) RetryFailed(ctx context.Context) ([]SendOutcome, error) {
	failed, err := s.store.ListBySendState(ctx, model.SendStateSendFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed records: %w", err)
	}

	outcomes := make([]SendOutcome, 0, len(failed))
	for _, rec := range failed {
		outcome := SendOutcome{RecordID: rec.ID}
		updated, err := s.SendRecord(ctx, rec.ID)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.SendState = updated.SendState
		outcomes = append(outcomes, outcome)
	}

	s.log.Info().
		Int("attempted", len(failed)).
		Msg("retry batch finished")
	return outcomes, nil
}

// RefreshWatchlist pulls the current hot sheet, swaps the snapshot, and
// re-evaluates every record with absent or stale enrichment. A fetch or
// persist failure keeps the previous snapshot and is reported in the
// result rather than returned; re-enrichment still runs against whatever
// snapshot is in place.
func (s *SyncService) RefreshWatchlist(ctx context.Context) (RefreshReport, error) {
	plates, err := s.dispatch.FetchWatchlist(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("watchlist fetch failed, keeping previous snapshot")
		return s.finishRefresh(ctx, RefreshReport{
			RefreshedAt:    time.Now(),
			WatchlistError: err.Error(),
		})
	}
	return s.RefreshWatchlistFrom(ctx, plates)
}

// RefreshWatchlistFrom swaps the snapshot to an explicitly supplied plate
// list, bypassing the dispatch fetch. Used by manual hot sheet imports.
func (s *SyncService) RefreshWatchlistFrom(ctx context.Context, plates []string) (RefreshReport, error) {
	report := RefreshReport{RefreshedAt: time.Now()}
	if err := s.hotSheet.Refresh(ctx, plates); err != nil {
		report.WatchlistError = err.Error()
		s.log.Error().Err(err).Msg("watchlist persist failed, keeping previous snapshot")
	}
	return s.finishRefresh(ctx, report)
}

func (s *SyncService) finishRefresh(ctx context.Context, report RefreshReport) (RefreshReport, error) {
	report.Entries = s.hotSheet.Len()

	records, err := s.store.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list records for re-enrichment: %w", err)
	}

	now := time.Now()
	for _, rec := range records {
		if !rec.EnrichmentStale(now, s.hotInterval) {
			continue
		}
		report.Scanned++

		if err := s.reEnrich(ctx, rec); err != nil {
			report.DetailFailures++
			s.log.Warn().
				Err(err).
				Int64("record_id", rec.ID).
				Str("plate", rec.PlateText).
				Msg("re-enrichment failed for record")
			continue
		}
		report.ReEnriched++
	}

	s.log.Info().
		Int("entries", report.Entries).
		Int("scanned", report.Scanned).
		Int("re_enriched", report.ReEnriched).
		Int("detail_failures", report.DetailFailures).
		Msg("watchlist refresh cycle finished")

	s.publish(report)
	return report, nil
}

// reEnrich re-evaluates one record against the current snapshot. A hit
// fetches fresh vehicle details; a miss clears the hot flag but leaves any
// details already attached.
func (s *SyncService) reEnrich(ctx context.Context, rec model.PlateRecord) error {
	lock := s.lockFor(rec.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := s.hotSheet.Lookup(rec.PlateText); !ok {
		now := time.Now()
		_, err := s.store.Update(ctx, rec.ID, map[string]interface{}{
			"is_hot":         false,
			"hot_fetched_at": &now,
		})
		return err
	}

	payload, err := s.dispatch.FetchHotDetails(ctx, rec.PlateText)
	if err != nil {
		return err
	}
	if payload == nil {
		// Listed locally but unknown to dispatch; stamp membership only.
		now := time.Now()
		_, err := s.store.Update(ctx, rec.ID, map[string]interface{}{
			"is_hot":         true,
			"hot_fetched_at": &now,
		})
		return err
	}

	_, err = s.plates.HydrateHotDetails(ctx, rec.ID, payload.Details, payload.Raw)
	return err
}

// RunWatchlistRefresher drives periodic refresh cycles until the context
// is cancelled. Intended to run in its own goroutine.
func (s *SyncService) RunWatchlistRefresher(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.log.Info().Dur("period", period).Msg("watchlist refresher started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("watchlist refresher stopped")
			return
		case <-ticker.C:
			if _, err := s.RefreshWatchlist(ctx); err != nil {
				s.log.Error().Err(err).Msg("watchlist refresh cycle failed")
			}
		}
	}
}

// Reports exposes the refresh cycle results. The channel holds only the
// latest report; slow consumers see the freshest state, not a backlog.
func (s *SyncService) Reports() <-chan RefreshReport {
	return s.reports
}

// LastReport returns the most recent refresh report, or nil before the
// first cycle.
func (s *SyncService) LastReport() *RefreshReport {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

func (s *SyncService) publish(report RefreshReport) {
	s.reportMu.Lock()
	s.lastReport = &report
	s.reportMu.Unlock()

	select {
	case s.reports <- report:
	default:
		select {
		case <-s.reports:
		default:
		}
		select {
		case s.reports <- report:
		default:
		}
	}
}
