//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/sonicprint/pkg/utils"
)

const DefaultDBFile = "sonicprint.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no record matches an id or cache key.
var ErrNotFound = errors.New("fingerprint not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Record is one derived fingerprint. RawDigest and SettingsDigest together
// form the cache key: the same raw input derived under the same settings
// always yields the same payload.
type Record struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string  `gorm:"index:idx_fp_name" json:"name"`
	RawDigest      string  `gorm:"type:varchar(64);uniqueIndex:idx_fp_key,priority:1" json:"raw_digest"`
	SettingsDigest string  `gorm:"type:varchar(64);uniqueIndex:idx_fp_key,priority:2" json:"settings_digest"`
	Hash           int32   `gorm:"index:idx_fp_hash" json:"hash"`
	FloatHash      float64 `json:"float_hash"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Samples        int     `json:"samples"`
	Features       int     `json:"features"`
	Raw            []byte  `json:"-"`
	Payload        []byte  `json:"-"`
	CreatedAt      time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SONICPRINT_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Record{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Save stores rec and returns its id. When a record with the same cache key
// already exists its id is returned and nothing is written.
func (c *DBClient) Save(rec *Record) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	var id string
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		var existing Record
		err := tx.Select("id").
			Where("raw_digest = ? AND settings_digest = ?", rec.RawDigest, rec.SettingsDigest).
			First(&existing).Error
		if err == nil {
			id = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("querying existing fingerprint: %w", err)
		}

		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("creating fingerprint: %w", err)
		}
		id = rec.ID
		return nil
	})
	return id, err
}

// FindByKey looks a derivation up by its cache key.
func (c *DBClient) FindByKey(rawDigest, settingsDigest string) (*Record, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec Record
	err := c.DB.Where("raw_digest = ? AND settings_digest = ?", rawDigest, settingsDigest).First(&rec).Error
	return found(&rec, err)
}

func (c *DBClient) Get(id string) (*Record, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec Record
	err := c.DB.Where("id = ?", id).First(&rec).Error
	return found(&rec, err)
}

func found(rec *Record, err error) (*Record, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying fingerprint: %w", err)
	}
	return rec, nil
}

// List returns every record newest first, without the raw and payload blobs.
func (c *DBClient) List() ([]Record, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Record
	err := c.DB.Omit("raw", "payload").Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	return rows, nil
}

func (c *DBClient) Delete(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("id = ?", id).Delete(&Record{})
	if res.Error != nil {
		return fmt.Errorf("deleting fingerprint: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *DBClient) Count() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := c.DB.Model(&Record{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
