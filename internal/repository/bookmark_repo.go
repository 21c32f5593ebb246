package repository

import (
	"tap-timebutler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookmarkRepository interface {
	Save(key, value string) error
	GetAll() ([]models.SyncBookmark, error)
}

type GormBookmarkRepository struct {
	db *gorm.DB
}

func NewGormBookmarkRepository(db *gorm.DB) (BookmarkRepository, error) {
	if err := db.AutoMigrate(&models.SyncBookmark{}); err != nil {
		return nil, err
	}
	return &GormBookmarkRepository{db: db}, nil
}

func (r *GormBookmarkRepository) Save(key, value string) error {
	bookmark := models.SyncBookmark{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bookmark_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&bookmark).Error
}

func (r *GormBookmarkRepository) GetAll() ([]models.SyncBookmark, error) {
	var bookmarks []models.SyncBookmark
	err := r.db.Order("bookmark_key ASC").Find(&bookmarks).Error
	return bookmarks, err
}
