package drafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 51730301

// DraftModel is the persisted row. The json column type keeps the body text
// exactly as submitted; jsonb would normalize it.
type DraftModel struct {
	Filename  string         `gorm:"primaryKey"`
	Body      datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (DraftModel) TableName() string { return "prd_drafts" }

// GormStore keeps drafts in a postgres table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to dsn and migrates the drafts table. Slow queries
// and driver warnings go to the default slog handler.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("connect drafts db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrateDrafts(ctx, db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// migrateDrafts runs AutoMigrate under a session-level advisory lock.
func migrateDrafts(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", migrateLockID).Error; err != nil {
			return fmt.Errorf("lock drafts migration: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", migrateLockID)

		if err := conn.AutoMigrate(&DraftModel{}); err != nil {
			return fmt.Errorf("migrate drafts table: %w", err)
		}
		return nil
	})
}

// Put upserts a draft row.
func (s *GormStore) Put(ctx context.Context, name string, body []byte) error {
	now := time.Now().UTC()
	model := DraftModel{Filename: name, Body: datatypes.JSON(body), CreatedAt: now, UpdatedAt: now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&model).Error
}

// Get loads a draft body.
func (s *GormStore) Get(ctx context.Context, name string) ([]byte, error) {
	var model DraftModel
	if err := s.db.WithContext(ctx).First(&model, "filename = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(model.Body), nil
}

// List returns every stored filename.
func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&DraftModel{}).Order("filename").Pluck("filename", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes a draft row.
func (s *GormStore) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Delete(&DraftModel{}, "filename = ?", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a row for name exists.
func (s *GormStore) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&DraftModel{}).Where("filename = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
