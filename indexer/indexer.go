// Package indexer persists boost events to an embedded SQLite database so
// external tooling can query payout history without replaying the event
// stream.
package indexer

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	coreevents "prizeboost/core/events"
)

// BoostRecord is one executed boost payout.
type BoostRecord struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	Winner     string    `gorm:"size:42;index"`
	Recipient  string    `gorm:"size:42"`
	Source     string    `gorm:"size:42;index"`
	Token      string    `gorm:"size:16"`
	Prize      string    `gorm:"size:80"`
	Amount     string    `gorm:"size:80"`
	Tier       uint8
	Draw       uint32
	ClaimIndex uint32
}

// AdminRecord is one owner-driven change (multiplier, limit, eligibility,
// pause state, ownership, withdrawal).
type AdminRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	Type      string    `gorm:"size:64;index"`
	Caller    string    `gorm:"size:42"`
	Detail    string    `gorm:"size:512"`
}

// AutoMigrate performs all schema migrations for the index.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&BoostRecord{}, &AdminRecord{})
}

// Indexer subscribes to the module event stream and writes rows to SQLite.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open creates or opens the index database at the provided path.
func Open(path string, logger *slog.Logger) (*Indexer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", path, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: logger}, nil
}

// Emit implements events.Emitter. Indexing is best effort: a failed insert is
// logged and never propagates back into the claim path.
func (ix *Indexer) Emit(evt coreevents.Event) {
	if ix == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	switch payload.Type {
	case coreevents.TypeBoostExecuted:
		attrs := payload.Attributes
		tier, _ := strconv.ParseUint(attrs["tier"], 10, 8)
		draw, _ := strconv.ParseUint(attrs["draw"], 10, 32)
		index, _ := strconv.ParseUint(attrs["index"], 10, 32)
		record := BoostRecord{
			Winner:     attrs["winner"],
			Recipient:  attrs["recipient"],
			Source:     attrs["source"],
			Token:      attrs["token"],
			Prize:      attrs["prize"],
			Amount:     attrs["amount"],
			Tier:       uint8(tier),
			Draw:       uint32(draw),
			ClaimIndex: uint32(index),
		}
		if err := ix.db.Create(&record).Error; err != nil {
			ix.logger.Error("index boost record", "error", err)
		}
	case coreevents.TypeBoostMultiplierUpdated,
		coreevents.TypeBoostLimitUpdated,
		coreevents.TypeBoostSourceUpdated,
		coreevents.TypeBoostPaused,
		coreevents.TypeBoostResumed,
		coreevents.TypeBoostOwnershipPending,
		coreevents.TypeBoostOwnershipTransferred,
		coreevents.TypeBoostReserveWithdrawn:
		record := AdminRecord{
			Type:   payload.Type,
			Caller: payload.Attributes["caller"],
			Detail: flatten(payload.Attributes),
		}
		if err := ix.db.Create(&record).Error; err != nil {
			ix.logger.Error("index admin record", "error", err)
		}
	}
}

// WinnerBoosts returns the payout history for a winner, newest first.
func (ix *Indexer) WinnerBoosts(winner string, limit int) ([]BoostRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []BoostRecord
	err := ix.db.
		Where("winner = ?", winner).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// RecentAdminActions returns the latest owner-driven changes, newest first.
func (ix *Indexer) RecentAdminActions(limit int) ([]AdminRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []AdminRecord
	err := ix.db.Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

func flatten(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}
