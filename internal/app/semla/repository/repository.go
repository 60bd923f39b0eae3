package repository

import (
	"context"
	"errors"
	"time"

	"semelfinder/internal/app/semla/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSemlaNotFound = errors.New("semla not found")
)

type SemlaRepository interface {
	Create(ctx context.Context, semla *entity.Semla) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Semla, error)
	// GetByIDForUpdate берёт строку под блокировку FOR UPDATE; вызывается
	// только внутри транзакции, чтобы сериализовать пересчёт агрегата
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Semla, error)
	GetAllWithImages(ctx context.Context) ([]entity.SemlaWithImages, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
	Exists(ctx context.Context, bakery, city, kind string) (bool, error)
}

type RatingRepository interface {
	Create(ctx context.Context, rating *entity.Rating) error
	GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error)
	GetCommentsBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error)
}

type ImageRepository interface {
	Create(ctx context.Context, image *entity.SemlaImage) error
	GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.SemlaImage, error)
}

type TrackerRepository interface {
	CountToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error)
	// IncrementToday атомарно создаёт строку со count=1 либо инкрементит
	// существующую и возвращает новое значение. Один upsert-стейтмент:
	// два конкурентных первых вызова не создадут две строки
	IncrementToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories - набор репозиториев, связанных с одним *gorm.DB.
// Внутри Atomic.Transact все они работают через одну транзакцию.
type Repositories struct {
	Semlor   SemlaRepository
	Ratings  RatingRepository
	Images   ImageRepository
	Trackers TrackerRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Semlor:   NewSemlaRepository(db),
		Ratings:  NewRatingRepository(db),
		Images:   NewImageRepository(db),
		Trackers: NewTrackerRepository(db),
	}
}

// Atomic выполняет функцию над репозиториями в одной транзакции:
// либо все записи коммитятся, либо всё откатывается
type Atomic interface {
	Transact(ctx context.Context, fn func(r Repositories) error) error
}

type gormAtomic struct {
	db *gorm.DB
}

func NewAtomic(db *gorm.DB) Atomic {
	return &gormAtomic{db: db}
}

func (a *gormAtomic) Transact(ctx context.Context, fn func(r Repositories) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
