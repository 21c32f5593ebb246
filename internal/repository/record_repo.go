package repository

import (
	"tap-timebutler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordRepository interface {
	Upsert(record *models.StoredRecord) error
	CountByStream(stream string) (int64, error)
	DeleteStale(stream, syncRun string) (int64, error)
}

type GormRecordRepository struct {
	db *gorm.DB
}

func NewGormRecordRepository(db *gorm.DB) (RecordRepository, error) {
	if err := db.AutoMigrate(&models.StoredRecord{}); err != nil {
		return nil, err
	}
	return &GormRecordRepository{db: db}, nil
}

// Upsert inserts record or replaces the payload of the row with the same stream and key.
func (r *GormRecordRepository) Upsert(record *models.StoredRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream"}, {Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "sync_run", "extracted_at", "updated_at"}),
	}).Create(record).Error
}

func (r *GormRecordRepository) CountByStream(stream string) (int64, error) {
	var count int64
	err := r.db.Model(&models.StoredRecord{}).
		Where("stream = ?", stream).
		Count(&count).Error
	return count, err
}

// DeleteStale removes the rows of stream not written by syncRun.
func (r *GormRecordRepository) DeleteStale(stream, syncRun string) (int64, error) {
	res := r.db.Where("stream = ? AND (sync_run IS NULL OR sync_run <> ?)", stream, syncRun).
		Delete(&models.StoredRecord{})
	return res.RowsAffected, res.Error
}
