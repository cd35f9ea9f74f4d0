package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ClinicalNote is the row of the clinical_notes table.
type ClinicalNote struct {
	PatientID string    `gorm:"column:patient_id;primaryKey;size:64"`
	Note      string    `gorm:"column:note;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (ClinicalNote) TableName() string { return "clinical_notes" }

// OpenDB opens a gorm connection for driver (sqlite, postgres, mysql).
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("notes: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("notes: open %s: %w", driver, err)
	}
	return db, nil
}

// GormStore keeps notes in a relational table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the clinical_notes table.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&ClinicalNote{}); err != nil {
		return nil, fmt.Errorf("notes: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, patientID string) (string, error) {
	var n ClinicalNote
	err := s.db.WithContext(ctx).Where("patient_id = ?", patientID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("notes: get %s: %w", patientID, err)
	}
	return n.Note, nil
}

// Put implements Store.
func (s *GormStore) Put(ctx context.Context, patientID, text string) error {
	n := ClinicalNote{PatientID: patientID, Note: text}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
	}).Create(&n).Error
	if err != nil {
		return fmt.Errorf("notes: put %s: %w", patientID, err)
	}
	return nil
}

// All implements Store.
func (s *GormStore) All(ctx context.Context) (map[string]string, error) {
	var rows []ClinicalNote
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notes: list: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.PatientID] = r.Note
	}
	return out, nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
