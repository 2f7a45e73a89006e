package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cryptodesk/internal/domain"
)

// BalanceRecord is the persisted form of a ledger balance. Decimal
// fields are stored as strings to avoid float drift across a reload.
type BalanceRecord struct {
	Symbol    string    `gorm:"primaryKey" json:"symbol"`
	Amount    string    `json:"amount"`
	Available string    `json:"available"`
	InOrders  string    `json:"in_orders"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage persists wallet snapshots and app settings in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at dbPath. An empty
// path resolves to the per-user config directory.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		resolved, err := defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&BalanceRecord{}, &AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cryptodesk", "data", "cryptodesk.db"), nil
}

// ======================================================================================
// Balance Snapshot Operations
// ======================================================================================

// SaveBalances replaces the persisted balance snapshot.
func (s *Storage) SaveBalances(balances []domain.Balance) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&BalanceRecord{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, b := range balances {
			rec := BalanceRecord{
				Symbol:    b.Symbol,
				Amount:    b.Amount.String(),
				Available: b.Available.String(),
				InOrders:  b.InOrders.String(),
				UpdatedAt: now,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadBalances returns the persisted snapshot in stored order, or nil if
// no snapshot exists.
func (s *Storage) LoadBalances() ([]domain.Balance, error) {
	var records []BalanceRecord
	if err := s.db.Order("symbol").Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]domain.Balance, 0, len(records))
	for _, rec := range records {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for %s: %w", rec.Symbol, err)
		}
		available, err := decimal.NewFromString(rec.Available)
		if err != nil {
			return nil, fmt.Errorf("corrupt available for %s: %w", rec.Symbol, err)
		}
		inOrders, err := decimal.NewFromString(rec.InOrders)
		if err != nil {
			return nil, fmt.Errorf("corrupt in_orders for %s: %w", rec.Symbol, err)
		}
		out = append(out, domain.Balance{
			Symbol:    rec.Symbol,
			Amount:    amount,
			Available: available,
			InOrders:  inOrders,
		})
	}
	return out, nil
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := AppConfig{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.Save(&config).Error
}

// GetConfig retrieves a configuration value, empty if absent.
func (s *Storage) GetConfig(key string) (string, error) {
	var config AppConfig
	err := s.db.First(&config, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return config.Value, err
}
