package models

import (
	"context"
	"errors"
	"time"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger and settings each live in a single JSON value. The merge algorithm
// rewrites the whole ledger anyway (full overwrite per batch), so a KV blob
// is the honest shape for this data; a row-per-budget table would only
// pretend at granularity the write path doesn't have.
const (
	budgetsStorageKey  = "construcost_budgets"
	settingsStorageKey = "construcost_settings"
)

// KvEntry is a persisted key/value pair.
type KvEntry struct {
	Key       string    `gorm:"primaryKey;size:191;column:kv_key" json:"key"`
	Value     string    `gorm:"type:longtext" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KvEntry) TableName() string {
	return "kv_entries"
}

// MigrateLedgerTables creates the backing table. Call once after connecting.
func MigrateLedgerTables(db *gorm.DB) error {
	return db.AutoMigrate(&KvEntry{})
}

// GormLedgerStore persists the ledger in MySQL through GORM. A nil db falls
// back to the shared connection, which lets main wire routes before
// ConnectDatabaseWithRetry has finished (the readiness gate returns 503
// until then).
type GormLedgerStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormLedgerStore(db *gorm.DB, logger *logrus.Logger) *GormLedgerStore {
	return &GormLedgerStore{db: db, logger: logger}
}

var _ LedgerStore = (*GormLedgerStore)(nil)

func (s *GormLedgerStore) conn() *gorm.DB {
	if s.db != nil {
		return s.db
	}
	return config.GetDB()
}

// loadBudgets reads the raw ledger in stored order. Missing row or corrupt
// JSON degrades to an empty ledger.
func (s *GormLedgerStore) loadBudgets(ctx context.Context) []Budget {
	var entry KvEntry
	err := s.conn().WithContext(ctx).Where("kv_key = ?", budgetsStorageKey).Take(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError("loadBudgets", err)
		}
		return []Budget{}
	}

	var budgets []Budget
	if err := utils.UnmarshalFromJSON([]byte(entry.Value), &budgets); err != nil {
		s.logError("loadBudgets", err)
		return []Budget{}
	}
	return budgets
}

func (s *GormLedgerStore) persistBudgets(ctx context.Context, budgets []Budget) error {
	raw, err := utils.MarshalToJSON(budgets)
	if err != nil {
		return err
	}
	entry := KvEntry{Key: budgetsStorageKey, Value: raw}
	return s.conn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *GormLedgerStore) GetAll(ctx context.Context) []Budget {
	budgets := s.loadBudgets(ctx)
	SortBudgetsForDisplay(budgets)
	return budgets
}

func (s *GormLedgerStore) Upsert(ctx context.Context, b Budget) (Budget, error) {
	budgets := s.loadBudgets(ctx)

	replaced := false
	if b.ID != "" {
		for i := range budgets {
			if budgets[i].ID == b.ID {
				budgets[i] = b
				replaced = true
				break
			}
		}
	}
	if !replaced {
		if b.ID == "" {
			b.ID = NewBudgetID()
		}
		budgets = append(budgets, b)
	}

	if err := s.persistBudgets(ctx, budgets); err != nil {
		return Budget{}, err
	}
	return b, nil
}

func (s *GormLedgerStore) Delete(ctx context.Context, id string) error {
	budgets := s.loadBudgets(ctx)
	kept := budgets[:0]
	for _, b := range budgets {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	return s.persistBudgets(ctx, kept)
}

func (s *GormLedgerStore) BatchMerge(ctx context.Context, incoming []Budget) error {
	current := s.loadBudgets(ctx)
	merged := MergeBudgets(current, incoming)
	return s.persistBudgets(ctx, merged)
}

func (s *GormLedgerStore) GetSettings(ctx context.Context) AppSettings {
	var entry KvEntry
	err := s.conn().WithContext(ctx).Where("kv_key = ?", settingsStorageKey).Take(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError("GetSettings", err)
		}
		return DefaultAppSettings()
	}

	settings := DefaultAppSettings()
	if err := utils.UnmarshalFromJSON([]byte(entry.Value), &settings); err != nil {
		s.logError("GetSettings", err)
		return DefaultAppSettings()
	}
	return settings
}

func (s *GormLedgerStore) SaveSettings(ctx context.Context, settings AppSettings) error {
	raw, err := utils.MarshalToJSON(settings)
	if err != nil {
		return err
	}
	entry := KvEntry{Key: settingsStorageKey, Value: raw}
	return s.conn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *GormLedgerStore) logError(funcName string, err error) {
	logger := s.logger
	if logger == nil {
		logger = config.GetLogger()
	}
	logger.WithFields(logrus.Fields{
		"module":   "gormLedgerStore.go",
		"funcName": funcName,
	}).Error(err.Error())
}
