package repository

import (
	"context"

	"semelfinder/internal/app/semla/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository создает новый репозиторий оценок
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Create создает новую оценку
func (r *ratingRepository) Create(ctx context.Context, rating *entity.Rating) error {
	result := r.db.WithContext(ctx).Create(rating)
	return result.Error
}

// GetBySemlaID получает все оценки семлы
// Используется оркестратором для пересчёта агрегата
func (r *ratingRepository) GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error) {
	var ratings []entity.Rating
	result := r.db.WithContext(ctx).
		Where("semla_id = ?", semlaID).
		Find(&ratings)

	if result.Error != nil {
		return nil, result.Error
	}

	return ratings, nil
}

// GetCommentsBySemlaID получает оценки с непустым комментарием, новые первыми
func (r *ratingRepository) GetCommentsBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error) {
	var ratings []entity.Rating
	result := r.db.WithContext(ctx).
		Where("semla_id = ? AND comment IS NOT NULL AND comment <> ''", semlaID).
		Order("created_at DESC").
		Find(&ratings)

	if result.Error != nil {
		return nil, result.Error
	}

	return ratings, nil
}
