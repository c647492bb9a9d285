package model

import (
	"time"

	"gorm.io/datatypes"
)

type SourceType string

const (
	SourceTypeOCR    SourceType = "ocr"
	SourceTypeManual SourceType = "manual"
)

func (s SourceType) Valid() bool {
	return s == SourceTypeOCR || s == SourceTypeManual
}

type SendState string

const (
	SendStateUnsent     SendState = "unsent"
	SendStateSent       SendState = "sent"
	SendStateSendFailed SendState = "send_failed"
)

// HotDetails is the enrichment payload supplied by the remote authority.
// Any subset of fields may be present.
type HotDetails struct {
	Make  *string  `json:"make,omitempty"`
	Model *string  `json:"model,omitempty"`
	Color *string  `json:"color,omitempty"`
	Flags []string `json:"flags,omitempty"`
	Notes *string  `json:"notes,omitempty"`
}

// PlateRecord is a captured plate observation. Image references and
// created_at are immutable after creation; plate text and source type are
// mutable via edit; send state and enrichment belong to the sync layer.
type PlateRecord struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	FullImage  string     `gorm:"not null" json:"full_image"`
	PlateImage string     `gorm:"not null" json:"plate_image"`
	PlateText  string     `gorm:"not null" json:"plate_text"`
	SourceType SourceType `gorm:"type:text;not null" json:"source_type"`
	SendState  SendState  `gorm:"type:text;not null;default:unsent" json:"send_state"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Hot sheet enrichment. Absent until a watchlist match has been
	// evaluated, i.e. HotFetchedAt is nil.
	IsHot        bool           `gorm:"not null;default:false" json:"is_hot"`
	HotFetchedAt *time.Time     `json:"hot_fetched_at,omitempty"`
	RawHot       datatypes.JSON `gorm:"type:jsonb" json:"raw_hot,omitempty"`
	Make         *string        `json:"make,omitempty"`
	Model        *string        `json:"model,omitempty"`
	Color        *string        `json:"color,omitempty"`
	Flags        datatypes.JSON `gorm:"type:jsonb" json:"flags,omitempty"`
	Notes        *string        `json:"notes,omitempty"`

	// HotAuthoritative is computed at read time, never stored: IsHot backed
	// by fresh enrichment. A stale hot flag stays readable but this drops
	// to false.
	HotAuthoritative bool `gorm:"-" json:"authoritative_hot"`
}

func (PlateRecord) TableName() string {
	return "plate_records"
}

// HasEnrichment reports whether a watchlist evaluation has ever been
// attached to the record.
func (p *PlateRecord) HasEnrichment() bool {
	return p.HotFetchedAt != nil
}

// EnrichmentStale reports whether the enrichment is older than interval.
// A record without enrichment counts as stale.
func (p *PlateRecord) EnrichmentStale(now time.Time, interval time.Duration) bool {
	if !p.HasEnrichment() {
		return true
	}
	return now.Sub(*p.HotFetchedAt) >= interval
}

// AuthoritativeHot reports whether the hot flag may be trusted: the record
// must be flagged and its enrichment must be fresh. A stale flag is still
// readable but advisory only.
func (p *PlateRecord) AuthoritativeHot(now time.Time, interval time.Duration) bool {
	return p.IsHot && !p.EnrichmentStale(now, interval)
}

// WatchlistEntry is one plate in the hot sheet snapshot. The snapshot has
// no stable per-entry identity across fetches, so refreshes replace it
// wholesale.
type WatchlistEntry struct {
	ID        int64     `gorm:"primaryKey" json:"-"`
	PlateText string    `gorm:"not null" json:"plate_text"`
	ListedAt  time.Time `gorm:"not null" json:"listed_at"`
}

func (WatchlistEntry) TableName() string {
	return "hot_sheet"
}
