package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"plate-service/internal/model"
	"plate-service/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// PlateStore is the persistence surface the services need. Satisfied by
// repository.PlateRepository.
type PlateStore interface {
	Create(ctx context.Context, record *model.PlateRecord) error
	GetByID(ctx context.Context, id int64) (*model.PlateRecord, error)
	GetAll(ctx context.Context) ([]model.PlateRecord, error)
	GetByPlateText(ctx context.Context, plateText string) (*model.PlateRecord, error)
	ListBySendState(ctx context.Context, state model.SendState) ([]model.PlateRecord, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// WatchlistIndex is the membership view of the hot sheet cache.
type WatchlistIndex interface {
	Lookup(plateText string) (model.WatchlistEntry, bool)
	LastRefreshedAt() time.Time
	Len() int
}

type PlateService struct {
	store       PlateStore
	watchlist   WatchlistIndex
	maxLength   int
	hotInterval time.Duration
	log         zerolog.Logger
}

func NewPlateService(store PlateStore, watchlist WatchlistIndex, maxLength int, hotInterval time.Duration, log zerolog.Logger) *PlateService {
	return &PlateService{
		store:       store,
		watchlist:   watchlist,
		maxLength:   maxLength,
		hotInterval: hotInterval,
		log:         log,
	}
}

// markAuthority stamps the computed hot authority on a record before it
// leaves the service. A record whose enrichment has gone stale keeps its
// readable is_hot flag but is never presented as authoritative.
func (s *PlateService) markAuthority(record *model.PlateRecord) {
	record.HotAuthoritative = record.AuthoritativeHot(time.Now(), s.hotInterval)
}

type CreateRecordInput struct {
	FullImage  string
	PlateImage string
	PlateText  string
	SourceType model.SourceType
}

type UpdateRecordInput struct {
	PlateText  *string
	SourceType *model.SourceType
	Make       *string
	Model      *string
	Color      *string
	Notes      *string
	Flags      []string
}

// Normalize runs the full pipeline on raw plate text and reports the
// formatted result with its confidence score.
func (s *PlateService) Normalize(raw string) (string, int) {
	return s.NormalizeWithin(raw, 0)
}

// NormalizeWithin is Normalize with an explicit length cap for callers
// whose input field enforces its own limit. A non-positive cap falls back
// to the configured maximum.
func (s *PlateService) NormalizeWithin(raw string, maxLength int) (string, int) {
	if maxLength <= 0 {
		maxLength = s.maxLength
	}
	return utils.Normalize(raw, maxLength)
}

// CreateRecord stores a new capture. The plate text is normalized and
// formatted before storage, and hot sheet membership is stamped from the
// in-memory snapshot. Vehicle details arrive later through hydration.
func (s *PlateService) CreateRecord(ctx context.Context, input CreateRecordInput) (*model.PlateRecord, error) {
	if !input.SourceType.Valid() {
		return nil, fmt.Errorf("%w: source_type must be ocr or manual", ErrInvalidInput)
	}
	if input.FullImage == "" || input.PlateImage == "" {
		return nil, fmt.Errorf("%w: full_image and plate_image are required", ErrInvalidInput)
	}

	formatted, err := s.formatPlateText(input.PlateText)
	if err != nil {
		return nil, err
	}

	record := &model.PlateRecord{
		FullImage:  input.FullImage,
		PlateImage: input.PlateImage,
		PlateText:  formatted,
		SourceType: input.SourceType,
		SendState:  model.SendStateUnsent,
	}

	// A miss leaves enrichment absent entirely; the hot flag only ever
	// appears together with an evaluation timestamp.
	if entry, ok := s.watchlist.Lookup(formatted); ok {
		now := time.Now()
		record.IsHot = true
		record.HotFetchedAt = &now
		if raw, err := json.Marshal(entry); err == nil {
			record.RawHot = datatypes.JSON(raw)
		}
	}

	if err := s.store.Create(ctx, record); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", formatted).
			Msg("failed to create plate record")
		return nil, fmt.Errorf("failed to create plate record: %w", err)
	}

	s.log.Info().
		Int64("record_id", record.ID).
		Str("plate", formatted).
		Str("source_type", string(record.SourceType)).
		Bool("is_hot", record.IsHot).
		Msg("plate record created")

	s.markAuthority(record)
	return record, nil
}

func (s *PlateService) GetRecord(ctx context.Context, id int64) (*model.PlateRecord, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plate record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}
	s.markAuthority(record)
	return record, nil
}

func (s *PlateService) ListRecords(ctx context.Context) ([]model.PlateRecord, error) {
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plate records: %w", err)
	}
	for i := range records {
		s.markAuthority(&records[i])
	}
	return records, nil
}

// FindByPlateText returns the most recent record matching the query after
// normalization.
func (s *PlateService) FindByPlateText(ctx context.Context, plateText string) (*model.PlateRecord, error) {
	if utils.NormalizePlate(plateText) == "" {
		return nil, fmt.Errorf("%w: plate query cannot be empty", ErrInvalidInput)
	}
	record, err := s.store.GetByPlateText(ctx, plateText)
	if err != nil {
		return nil, fmt.Errorf("failed to find plate record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no record for plate %q", ErrNotFound, plateText)
	}
	s.markAuthority(record)
	return record, nil
}

// UpdateRecord applies a partial edit. Fields left nil keep their stored
// values. Changing the plate text re-evaluates hot sheet membership: a hit
// flags the record, a miss clears the flag but keeps the descriptive
// fields already attached.
func (s *PlateService) UpdateRecord(ctx context.Context, id int64, input UpdateRecordInput) (*model.PlateRecord, error) {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if input.SourceType != nil {
		if !input.SourceType.Valid() {
			return nil, fmt.Errorf("%w: source_type must be ocr or manual", ErrInvalidInput)
		}
		updates["source_type"] = *input.SourceType
	}
	if input.Make != nil {
		updates["make"] = *input.Make
	}
	if input.Model != nil {
		updates["model"] = *input.Model
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.Flags != nil {
		raw, err := json.Marshal(input.Flags)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid flags", ErrInvalidInput)
		}
		updates["flags"] = datatypes.JSON(raw)
	}

	if input.PlateText != nil {
		formatted, err := s.formatPlateText(*input.PlateText)
		if err != nil {
			return nil, err
		}
		if formatted != record.PlateText {
			updates["plate_text"] = formatted

			if entry, ok := s.watchlist.Lookup(formatted); ok {
				now := time.Now()
				updates["is_hot"] = true
				updates["hot_fetched_at"] = &now
				if raw, err := json.Marshal(entry); err == nil {
					updates["raw_hot"] = datatypes.JSON(raw)
				}
			} else {
				updates["is_hot"] = false
			}
		}
	}

	if len(updates) == 0 {
		return record, nil
	}

	rows, err := s.store.Update(ctx, id, updates)
	if err != nil {
		s.log.Error().
			Err(err).
			Int64("record_id", id).
			Msg("failed to update plate record")
		return nil, fmt.Errorf("failed to update plate record: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}

	return s.GetRecord(ctx, id)
}

func (s *PlateService) DeleteRecord(ctx context.Context, id int64) error {
	rows, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete plate record: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}

	s.log.Info().Int64("record_id", id).Msg("plate record deleted")
	return nil
}

// HydrateHotDetails merges a detail payload into the record. Payload
// fields left nil keep the stored values, so partial responses never wipe
// details attached earlier.
func (s *PlateService) HydrateHotDetails(ctx context.Context, id int64, details model.HotDetails, raw []byte) (*model.PlateRecord, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"is_hot":         true,
		"hot_fetched_at": &now,
	}
	if raw != nil {
		updates["raw_hot"] = datatypes.JSON(raw)
	}
	if details.Make != nil {
		updates["make"] = *details.Make
	}
	if details.Model != nil {
		updates["model"] = *details.Model
	}
	if details.Color != nil {
		updates["color"] = *details.Color
	}
	if details.Notes != nil {
		updates["notes"] = *details.Notes
	}
	if details.Flags != nil {
		if rawFlags, err := json.Marshal(details.Flags); err == nil {
			updates["flags"] = datatypes.JSON(rawFlags)
		}
	}

	rows, err := s.store.Update(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate plate record: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: plate record %d", ErrNotFound, id)
	}

	return s.GetRecord(ctx, id)
}

// formatPlateText cleans and formats confirmed input, rejecting text that
// does not keep at least two usable characters. Confusable correction is
// deliberately not applied here: the text arrives already confirmed or
// corrected by the operator, and create must not rewrite it.
func (s *PlateService) formatPlateText(raw string) (string, error) {
	if len(utils.NormalizePlate(raw)) < 2 {
		return "", fmt.Errorf("%w: plate text must contain at least 2 letters or digits", ErrInvalidInput)
	}
	return utils.FormatPlate(raw, s.maxLength), nil
}
