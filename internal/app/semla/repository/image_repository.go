package repository

import (
	"context"

	"semelfinder/internal/app/semla/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository создает новый репозиторий картинок
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create создает новую запись о картинке
func (r *imageRepository) Create(ctx context.Context, image *entity.SemlaImage) error {
	result := r.db.WithContext(ctx).Create(image)
	return result.Error
}

// GetBySemlaID получает картинки семлы по времени создания
func (r *imageRepository) GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.SemlaImage, error) {
	var images []entity.SemlaImage
	result := r.db.WithContext(ctx).
		Where("semla_id = ?", semlaID).
		Order("created_at ASC").
		Find(&images)

	if result.Error != nil {
		return nil, result.Error
	}

	return images, nil
}
