package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const preferredCurrencyKey = "preferred_currency"

type SQLiteDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewSQLiteDB(path string, logger *logger.Logger) (models.Repository, error) {
	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Use standard logger
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log queries slower than this
			LogLevel:                  gormLogger.Warn,        // Only log warnings or errors
			IgnoreRecordNotFoundError: true,                   // Suppress "record not found" errors
			Colorful:                  true,                   // Enable colorful logs
		},
	)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %s", err)
	}

	if err := db.AutoMigrate(&models.StoredSession{}, &models.RateEntry{}, &models.Preference{}, &models.PendingPayload{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully opened client store at ", path)
	return &SQLiteDB{Conn: db, logger: logger}, nil
}

func (db *SQLiteDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *SQLiteDB) SaveSession(record *models.StoredSession) error {
	record.ID = 1 // single-row table, the newest session wins
	if err := db.Conn.Save(record).Error; err != nil {
		return fmt.Errorf("failed to save session: %s", err)
	}

	return nil
}

func (db *SQLiteDB) LoadSession() (*models.StoredSession, error) {
	var record models.StoredSession
	if err := db.Conn.First(&record, "id = ?", 1).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %s", err)
	}

	return &record, nil
}

func (db *SQLiteDB) ClearSession() error {
	if err := db.Conn.Where("id = ?", 1).Delete(&models.StoredSession{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %s", err)
	}

	return nil
}

func (db *SQLiteDB) GetRate(key string) (*models.RateEntry, error) {
	var entry models.RateEntry
	if err := db.Conn.Where("key = ?", key).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached rate: %s", err)
	}

	return &entry, nil
}

func (db *SQLiteDB) PutRate(entry *models.RateEntry) error {
	if err := db.Conn.Save(entry).Error; err != nil {
		return fmt.Errorf("failed to cache rate: %s", err)
	}
	return nil
}

func (db *SQLiteDB) PreferredCurrency() (string, error) {
	var pref models.Preference
	if err := db.Conn.Where("key = ?", preferredCurrencyKey).First(&pref).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get preferred currency: %s", err)
	}

	return pref.Value, nil
}

func (db *SQLiteDB) SetPreferredCurrency(currency string) error {
	pref := models.Preference{Key: preferredCurrencyKey, Value: currency}
	if err := db.Conn.Save(&pref).Error; err != nil {
		return fmt.Errorf("failed to set preferred currency: %s", err)
	}
	return nil
}

func (db *SQLiteDB) PutPendingPayload(payload *models.PendingPayload) error {
	if payload.CreatedAt == 0 {
		payload.CreatedAt = time.Now().Unix()
	}
	if err := db.Conn.Create(payload).Error; err != nil {
		return fmt.Errorf("failed to store pending payload: %s", err)
	}
	return nil
}

// TakePendingPayload reads and deletes in one step so a confirmation
// token can only ever be consumed once.
func (db *SQLiteDB) TakePendingPayload(token string) (*models.PendingPayload, error) {
	var payload models.PendingPayload
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", token).First(&payload).Error; err != nil {
			return err
		}
		return tx.Where("token = ?", token).Delete(&models.PendingPayload{}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to take pending payload: %s", err)
	}

	return &payload, nil
}
