package repository

import (
	"context"
	"errors"

	"semelfinder/internal/app/semla/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type semlaRepository struct {
	db *gorm.DB
}

// NewSemlaRepository создает новый репозиторий семлор
func NewSemlaRepository(db *gorm.DB) SemlaRepository {
	return &semlaRepository{db: db}
}

// Create создает новую семлу
func (r *semlaRepository) Create(ctx context.Context, semla *entity.Semla) error {
	result := r.db.WithContext(ctx).Create(semla)
	return result.Error
}

// GetByID получает семлу по ID
func (r *semlaRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Semla, error) {
	var semla entity.Semla
	result := r.db.WithContext(ctx).First(&semla, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSemlaNotFound
		}
		return nil, result.Error
	}

	return &semla, nil
}

// GetByIDForUpdate получает семлу по ID под блокировкой FOR UPDATE
func (r *semlaRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Semla, error) {
	var semla entity.Semla
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&semla, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSemlaNotFound
		}
		return nil, result.Error
	}

	return &semla, nil
}

// GetAllWithImages получает все семлы вместе с картинками
// Картинки внутри одной семлы упорядочены по времени создания
func (r *semlaRepository) GetAllWithImages(ctx context.Context) ([]entity.SemlaWithImages, error) {
	var semlor []entity.Semla
	result := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at DESC").
		Find(&semlor)

	if result.Error != nil {
		return nil, result.Error
	}

	withImages := make([]entity.SemlaWithImages, 0, len(semlor))
	for _, s := range semlor {
		images := s.Images
		if images == nil {
			images = []entity.SemlaImage{}
		}
		withImages = append(withImages, entity.SemlaWithImages{
			Semla:  s,
			Images: images,
		})
	}

	return withImages, nil
}

// UpdateRating записывает новый агрегат оценки семлы
func (r *semlaRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	result := r.db.WithContext(ctx).Model(&entity.Semla{}).
		Where("id = ?", id).
		Update("rating", rating)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSemlaNotFound
	}

	return nil
}

// Exists проверяет наличие семлы с таким же (bakery, city, kind)
// Используется CSV импортом для идемпотентности
func (r *semlaRepository) Exists(ctx context.Context, bakery, city, kind string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&entity.Semla{}).
		Where("bakery = ? AND city = ? AND kind = ?", bakery, city, kind).
		Count(&count)

	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}
