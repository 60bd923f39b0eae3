package mocks

import (
	"context"
	"io"
	"time"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/infrastructure"
	"semelfinder/internal/app/semla/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSemlaRepository мок для SemlaRepository
type MockSemlaRepository struct {
	mock.Mock
}

func (m *MockSemlaRepository) Create(ctx context.Context, semla *entity.Semla) error {
	args := m.Called(ctx, semla)
	return args.Error(0)
}

func (m *MockSemlaRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Semla, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Semla), args.Error(1)
}

func (m *MockSemlaRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Semla, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Semla), args.Error(1)
}

func (m *MockSemlaRepository) GetAllWithImages(ctx context.Context) ([]entity.SemlaWithImages, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SemlaWithImages), args.Error(1)
}

func (m *MockSemlaRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	args := m.Called(ctx, id, rating)
	return args.Error(0)
}

func (m *MockSemlaRepository) Exists(ctx context.Context, bakery, city, kind string) (bool, error) {
	args := m.Called(ctx, bakery, city, kind)
	return args.Bool(0), args.Error(1)
}

// MockRatingRepository мок для RatingRepository
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Create(ctx context.Context, rating *entity.Rating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingRepository) GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error) {
	args := m.Called(ctx, semlaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Rating), args.Error(1)
}

func (m *MockRatingRepository) GetCommentsBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.Rating, error) {
	args := m.Called(ctx, semlaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Rating), args.Error(1)
}

// MockImageRepository мок для ImageRepository
type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, image *entity.SemlaImage) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockImageRepository) GetBySemlaID(ctx context.Context, semlaID uuid.UUID) ([]entity.SemlaImage, error) {
	args := m.Called(ctx, semlaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SemlaImage), args.Error(1)
}

// MockTrackerRepository мок для TrackerRepository
type MockTrackerRepository struct {
	mock.Mock
}

func (m *MockTrackerRepository) CountToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error) {
	args := m.Called(ctx, key, action)
	return args.Int(0), args.Error(1)
}

func (m *MockTrackerRepository) IncrementToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error) {
	args := m.Called(ctx, key, action)
	return args.Int(0), args.Error(1)
}

func (m *MockTrackerRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockAtomic мок для Atomic. Transact прогоняет fn над Repos, тем самым
// тесты сервиса видят те же моки и внутри "транзакции"
type MockAtomic struct {
	mock.Mock
	Repos repository.Repositories
}

func (m *MockAtomic) Transact(ctx context.Context, fn func(r repository.Repositories) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(m.Repos)
}

// MockImageUploader мок для infrastructure.ImageUploader
type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (*infrastructure.UploadResult, error) {
	args := m.Called(ctx, reader, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrastructure.UploadResult), args.Error(1)
}

// MockSemlaCache мок для util.SemlaCache
type MockSemlaCache struct {
	mock.Mock
}

func (m *MockSemlaCache) SetSemlor(ctx context.Context, semlor []entity.SemlaWithImages, ttl time.Duration) error {
	args := m.Called(ctx, semlor, ttl)
	return args.Error(0)
}

func (m *MockSemlaCache) GetSemlor(ctx context.Context) ([]entity.SemlaWithImages, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SemlaWithImages), args.Error(1)
}

func (m *MockSemlaCache) DeleteSemlor(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSemlaCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	if args.Error(0) == nil {
		m.Messages = append(m.Messages, value)
	}
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
