package service

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/infrastructure"
	"semelfinder/internal/app/semla/repository"
	"semelfinder/internal/app/semla/repository/mocks"
	"semelfinder/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.InitWithWriter("semla-service-test", "error", io.Discard)
	os.Exit(m.Run())
}

type serviceMocks struct {
	semlor    *mocks.MockSemlaRepository
	ratings   *mocks.MockRatingRepository
	images    *mocks.MockImageRepository
	trackers  *mocks.MockTrackerRepository
	atomic    *mocks.MockAtomic
	uploader  *mocks.MockImageUploader
	cache     *mocks.MockSemlaCache
	publisher *mocks.MockMessagePublisher
}

func newServiceWithMocks(creationCap, ratingCap int) (*SemlaService, *serviceMocks) {
	m := &serviceMocks{
		semlor:    new(mocks.MockSemlaRepository),
		ratings:   new(mocks.MockRatingRepository),
		images:    new(mocks.MockImageRepository),
		trackers:  new(mocks.MockTrackerRepository),
		uploader:  new(mocks.MockImageUploader),
		cache:     new(mocks.MockSemlaCache),
		publisher: &mocks.MockMessagePublisher{Messages: make([][]byte, 0)},
	}

	repos := repository.Repositories{
		Semlor:   m.semlor,
		Ratings:  m.ratings,
		Images:   m.images,
		Trackers: m.trackers,
	}
	m.atomic = &mocks.MockAtomic{Repos: repos}

	svc := NewSemlaService(repos, m.atomic, m.uploader, m.cache, m.publisher, creationCap, ratingCap)
	return svc, m
}

func testIdentity() entity.IdentityKey {
	return entity.NewIdentityKey("203.0.113.7", "test-agent", time.Now())
}

func expectAfterCommit(m *serviceMocks) {
	m.cache.On("DeleteSemlor", mock.Anything).Return(nil)
	m.publisher.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestCreateSemla_Success(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(1, nil)
	m.semlor.On("Create", ctx, mock.AnythingOfType("*entity.Semla")).Return(nil)
	expectAfterCommit(m)

	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, testIdentity(), req, nil)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "Vete-Katten", result.Bakery)
	assert.Equal(t, 0.0, result.Rating)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Empty(t, result.UploadWarnings)
	assert.NotNil(t, result.Images)
	assert.Len(t, m.publisher.Messages, 1)
	m.semlor.AssertExpectations(t)
}

func TestCreateSemla_LimitReachedBeforeTransaction(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(5, nil)

	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, testIdentity(), req, nil)

	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Nil(t, result)
	m.semlor.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.atomic.AssertNotCalled(t, "Transact", mock.Anything)
}

func TestCreateSemla_LimitRaceCaughtInsideTransaction(t *testing.T) {
	// Быстрая проверка прошла, но конкурентный запрос успел занять
	// последний слот: инкремент внутри транзакции возвращает cap+1
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(4, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(6, nil)

	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, testIdentity(), req, nil)

	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Nil(t, result)
	m.semlor.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSemla_IdentityUndetermined(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	identity := entity.NewIdentityKey("", "test-agent", time.Now())
	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, identity, req, nil)

	assert.ErrorIs(t, err, ErrIdentityUndetermined)
	assert.Nil(t, result)
	m.trackers.AssertNotCalled(t, "CountToday", mock.Anything, mock.Anything, mock.Anything)
	m.trackers.AssertNotCalled(t, "IncrementToday", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSemla_UploadFailureIsNotFatal(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(1, nil)
	m.semlor.On("Create", ctx, mock.AnythingOfType("*entity.Semla")).Return(nil)
	m.uploader.On("Upload", ctx, mock.Anything, mock.Anything, "image/jpeg").
		Return(nil, errors.New("storage unavailable"))
	expectAfterCommit(m)

	files := []entity.ImageUpload{{Filename: "semla.jpg", ContentType: "image/jpeg", Content: []byte("jpegdata")}}
	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, testIdentity(), req, files)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result.Images)
	assert.Len(t, result.UploadWarnings, 1)
	assert.Contains(t, result.UploadWarnings[0], "semla.jpg")
	m.images.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSemla_PartialUploadFailure(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	uploadID := uuid.New()
	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionSemlaCreation).Return(1, nil)
	m.semlor.On("Create", ctx, mock.AnythingOfType("*entity.Semla")).Return(nil)
	m.uploader.On("Upload", ctx, mock.Anything, mock.Anything, "image/png").
		Return(&infrastructure.UploadResult{ID: uploadID, URL: "http://storage/images/" + uploadID.String() + ".png"}, nil)
	m.uploader.On("Upload", ctx, mock.Anything, mock.Anything, "image/webp").
		Return(nil, errors.New("storage unavailable"))
	m.images.On("Create", ctx, mock.AnythingOfType("*entity.SemlaImage")).Return(nil)
	expectAfterCommit(m)

	files := []entity.ImageUpload{
		{Filename: "ok.png", ContentType: "image/png", Content: []byte("pngdata")},
		{Filename: "broken.webp", ContentType: "image/webp", Content: []byte("webpdata")},
	}
	req := &entity.CreateSemlaRequest{Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic"}
	result, err := svc.CreateSemla(ctx, testIdentity(), req, files)

	assert.NoError(t, err)
	assert.Len(t, result.Images, 1)
	assert.Equal(t, uploadID, result.Images[0].ID)
	assert.Len(t, result.UploadWarnings, 1)
	assert.Contains(t, result.UploadWarnings[0], "broken.webp")
}

func TestRateSemla_FirstLegacyScore(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()
	semla := &entity.Semla{ID: semlaID, Bakery: "Vete-Katten", City: "Stockholm", Rating: 0}

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.semlor.On("GetByIDForUpdate", ctx, semlaID).Return(semla, nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionRating).Return(1, nil)
	m.ratings.On("GetBySemlaID", ctx, semlaID).Return([]entity.Rating{}, nil)
	m.ratings.On("Create", ctx, mock.AnythingOfType("*entity.Rating")).Return(nil)
	m.semlor.On("UpdateRating", ctx, semlaID, 4.0).Return(nil)
	expectAfterCommit(m)

	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, entity.LegacyScore(4), "", "", nil)

	assert.NoError(t, err)
	assert.Equal(t, 4.0, result.NewRating)
	assert.Len(t, m.publisher.Messages, 1)
	m.semlor.AssertExpectations(t)
}

func TestRateSemla_RecomputesOverFullPriorSet(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()
	semla := &entity.Semla{ID: semlaID, Rating: 4.5}

	five, four := 5, 4
	prior := []entity.Rating{{Rating: &five}, {Rating: &four}}

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.semlor.On("GetByIDForUpdate", ctx, semlaID).Return(semla, nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionRating).Return(1, nil)
	m.ratings.On("GetBySemlaID", ctx, semlaID).Return(prior, nil)
	m.ratings.On("Create", ctx, mock.AnythingOfType("*entity.Rating")).Return(nil)
	// (5+4+4)/3 = 4.333... -> 4.33
	m.semlor.On("UpdateRating", ctx, semlaID, 4.33).Return(nil)
	expectAfterCommit(m)

	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, entity.LegacyScore(4), "", "", nil)

	assert.NoError(t, err)
	assert.Equal(t, 4.33, result.NewRating)
	m.semlor.AssertExpectations(t)
}

func TestRateSemla_CategoryScoreUsesMean(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()
	semla := &entity.Semla{ID: semlaID}

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.semlor.On("GetByIDForUpdate", ctx, semlaID).Return(semla, nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionRating).Return(1, nil)
	m.ratings.On("GetBySemlaID", ctx, semlaID).Return([]entity.Rating{}, nil)
	m.semlor.On("UpdateRating", ctx, semlaID, 4.2).Return(nil)
	expectAfterCommit(m)

	var created *entity.Rating
	m.ratings.On("Create", ctx, mock.AnythingOfType("*entity.Rating")).Return(nil).Run(func(args mock.Arguments) {
		created = args.Get(1).(*entity.Rating)
	})

	score := entity.CategoryScore(entity.CategoryScores{Gradde: 5, Mandelmassa: 4, Lock: 3, Bulle: 4, Helhet: 5})
	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, score, "Fantastisk!", "Astrid", nil)

	assert.NoError(t, err)
	assert.Equal(t, 4.2, result.NewRating)

	// Строка оценки несёт категории, а не легаси-скаляр
	assert.Nil(t, created.Rating)
	assert.Equal(t, 5, *created.Gradde)
	assert.Equal(t, 4, *created.Mandelmassa)
	assert.Equal(t, "Fantastisk!", *created.Comment)
	assert.Equal(t, "Astrid", created.Name)
}

func TestRateSemla_NotFound(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.semlor.On("GetByIDForUpdate", ctx, semlaID).Return(nil, repository.ErrSemlaNotFound)

	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, entity.LegacyScore(4), "", "", nil)

	assert.ErrorIs(t, err, ErrSemlaNotFound)
	assert.Nil(t, result)
	m.trackers.AssertNotCalled(t, "IncrementToday", mock.Anything, mock.Anything, mock.Anything)
}

func TestRateSemla_LimitExceeded(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(5, nil)

	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, entity.LegacyScore(4), "", "", nil)

	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Nil(t, result)
	m.ratings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRateSemla_KafkaErrorIgnored(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()
	semla := &entity.Semla{ID: semlaID}

	m.trackers.On("CountToday", ctx, mock.Anything, entity.ActionRating).Return(0, nil)
	m.atomic.On("Transact", ctx).Return(nil)
	m.semlor.On("GetByIDForUpdate", ctx, semlaID).Return(semla, nil)
	m.trackers.On("IncrementToday", ctx, mock.Anything, entity.ActionRating).Return(1, nil)
	m.ratings.On("GetBySemlaID", ctx, semlaID).Return([]entity.Rating{}, nil)
	m.ratings.On("Create", ctx, mock.AnythingOfType("*entity.Rating")).Return(nil)
	m.semlor.On("UpdateRating", ctx, semlaID, 3.0).Return(nil)
	m.cache.On("DeleteSemlor", mock.Anything).Return(nil)
	m.publisher.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	result, err := svc.RateSemla(ctx, testIdentity(), semlaID, entity.LegacyScore(3), "", "", nil)

	assert.NoError(t, err)
	assert.Equal(t, 3.0, result.NewRating)
}

func TestGetAllSemlor_CacheHit(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	cached := []entity.SemlaWithImages{{Semla: entity.Semla{ID: uuid.New(), Bakery: "Vete-Katten"}}}
	m.cache.On("GetSemlor", ctx).Return(cached, nil)

	result, err := svc.GetAllSemlor(ctx)

	assert.NoError(t, err)
	assert.Equal(t, cached, result)
	m.semlor.AssertNotCalled(t, "GetAllWithImages", mock.Anything)
}

func TestGetAllSemlor_CacheMissFallsBackToDB(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()

	fromDB := []entity.SemlaWithImages{{Semla: entity.Semla{ID: uuid.New(), Bakery: "Tossebageriet"}}}
	m.cache.On("GetSemlor", ctx).Return(nil, nil)
	m.semlor.On("GetAllWithImages", ctx).Return(fromDB, nil)
	m.cache.On("SetSemlor", ctx, fromDB, time.Hour).Return(nil)

	result, err := svc.GetAllSemlor(ctx)

	assert.NoError(t, err)
	assert.Equal(t, fromDB, result)
	m.cache.AssertExpectations(t)
}

func TestGetComments_Success(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()

	comment := "Perfekt mandelmassa"
	four := 4
	m.semlor.On("GetByID", ctx, semlaID).Return(&entity.Semla{ID: semlaID}, nil)
	m.ratings.On("GetCommentsBySemlaID", ctx, semlaID).Return([]entity.Rating{
		{Rating: &four, Comment: &comment, Name: "Erik"},
	}, nil)

	comments, err := svc.GetComments(ctx, semlaID)

	assert.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, "Perfekt mandelmassa", comments[0].Comment)
	assert.Equal(t, 4.0, comments[0].Rating)
	assert.Equal(t, "Erik", comments[0].Name)
}

func TestGetComments_SemlaNotFound(t *testing.T) {
	svc, m := newServiceWithMocks(5, 5)
	ctx := context.Background()
	semlaID := uuid.New()

	m.semlor.On("GetByID", ctx, semlaID).Return(nil, repository.ErrSemlaNotFound)

	comments, err := svc.GetComments(ctx, semlaID)

	assert.ErrorIs(t, err, ErrSemlaNotFound)
	assert.Nil(t, comments)
	m.ratings.AssertNotCalled(t, "GetCommentsBySemlaID", mock.Anything, mock.Anything)
}
