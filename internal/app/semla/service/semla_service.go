package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/infrastructure"
	"semelfinder/internal/app/semla/repository"
	"semelfinder/internal/app/semla/util"
	"semelfinder/pkg/logger"
	"semelfinder/pkg/metrics"

	"github.com/google/uuid"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrSemlaNotFound        = errors.New("semla not found")
	ErrLimitExceeded        = errors.New("daily limit exceeded")
	ErrIdentityUndetermined = errors.New("identity undetermined")
)

// SemlaService - оркестратор сабмишенов. Связывает проверку дневного лимита,
// доменную запись, загрузку картинок и инкремент счётчика в одну транзакцию:
// либо коммитится всё, либо ничего. Единственное исключение - загрузка
// картинки: её провал логируется и не валит сабмишен.
type SemlaService struct {
	repos       repository.Repositories         // Репозитории вне транзакции (чтение)
	atomic      repository.Atomic               // Транзакционный исполнитель для сабмишенов
	uploader    infrastructure.ImageUploader    // Объектное хранилище картинок
	cache       util.SemlaCache                 // Кеш списка семлор в Redis
	publisher   infrastructure.MessagePublisher // Producer событий для Kafka
	creationCap int                             // Дневной лимит созданий на идентичность
	ratingCap   int                             // Дневной лимит оценок на идентичность
}

// NewSemlaService создает новый сервис с внедрением зависимостей
func NewSemlaService(
	repos repository.Repositories,
	atomic repository.Atomic,
	uploader infrastructure.ImageUploader,
	cache util.SemlaCache,
	publisher infrastructure.MessagePublisher,
	creationCap int,
	ratingCap int,
) *SemlaService {
	return &SemlaService{
		repos:       repos,
		atomic:      atomic,
		uploader:    uploader,
		cache:       cache,
		publisher:   publisher,
		creationCap: creationCap,
		ratingCap:   ratingCap,
	}
}

// CreateSemla создает новую семлу с опциональными картинками.
// Агрегат оценки всегда стартует с 0.00, что бы клиент ни прислал.
func (s *SemlaService) CreateSemla(ctx context.Context, identity entity.IdentityKey, req *entity.CreateSemlaRequest, files []entity.ImageUpload) (*entity.CreateSemlaResult, error) {
	if identity.IPAddress == "" {
		return nil, ErrIdentityUndetermined
	}

	// Быстрая проверка лимита до открытия транзакции.
	// Авторитетная проверка - инкремент внутри транзакции ниже:
	// только она закрывает гонку check-then-act между конкурентными запросами.
	count, err := s.repos.Trackers.CountToday(ctx, identity, entity.ActionSemlaCreation)
	if err != nil {
		return nil, fmt.Errorf("failed to check creation limit: %w", err)
	}
	if count >= s.creationCap {
		metrics.RecordRateLimitRejection(string(entity.ActionSemlaCreation))
		return nil, ErrLimitExceeded
	}

	semla := &entity.Semla{
		ID:        uuid.New(),
		Bakery:    req.Bakery,
		City:      req.City,
		Vegan:     req.Vegan,
		Price:     req.Price,
		Kind:      req.Kind,
		Rating:    0.00,
		CreatedAt: time.Now(),
	}

	var images []entity.SemlaImage
	var warnings []string

	err = s.atomic.Transact(ctx, func(r repository.Repositories) error {
		// Инкремент первым: уникальная строка счётчика берёт блокировку и
		// сериализует конкурентные сабмишены одной идентичности
		newCount, err := r.Trackers.IncrementToday(ctx, identity, entity.ActionSemlaCreation)
		if err != nil {
			return fmt.Errorf("failed to increment creation counter: %w", err)
		}
		if newCount > s.creationCap {
			metrics.RecordRateLimitRejection(string(entity.ActionSemlaCreation))
			return ErrLimitExceeded
		}

		if err := r.Semlor.Create(ctx, semla); err != nil {
			return fmt.Errorf("failed to create semla: %w", err)
		}

		images, warnings = s.storeImages(ctx, r, semla.ID, files)

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, entity.EventSemlaCreated, semla)
	metrics.RecordSemlaCreated()

	if images == nil {
		images = []entity.SemlaImage{}
	}
	return &entity.CreateSemlaResult{
		SemlaWithImages: entity.SemlaWithImages{Semla: *semla, Images: images},
		UploadWarnings:  warnings,
	}, nil
}

// RateSemla добавляет оценку и пересчитывает агрегат семлы.
// Семла блокируется FOR UPDATE: конкурентные оценки пересчитывают
// среднее строго по очереди и ни одна выборка не теряется.
func (s *SemlaService) RateSemla(ctx context.Context, identity entity.IdentityKey, semlaID uuid.UUID, score entity.Score, comment, name string, image *entity.ImageUpload) (*entity.RateSemlaResult, error) {
	if identity.IPAddress == "" {
		return nil, ErrIdentityUndetermined
	}

	count, err := s.repos.Trackers.CountToday(ctx, identity, entity.ActionRating)
	if err != nil {
		return nil, fmt.Errorf("failed to check rating limit: %w", err)
	}
	if count >= s.ratingCap {
		metrics.RecordRateLimitRejection(string(entity.ActionRating))
		return nil, ErrLimitExceeded
	}

	var newRating float64
	var warnings []string
	var semla *entity.Semla

	err = s.atomic.Transact(ctx, func(r repository.Repositories) error {
		var err error
		semla, err = r.Semlor.GetByIDForUpdate(ctx, semlaID)
		if err != nil {
			if errors.Is(err, repository.ErrSemlaNotFound) {
				return ErrSemlaNotFound
			}
			return fmt.Errorf("failed to get semla: %w", err)
		}

		newCount, err := r.Trackers.IncrementToday(ctx, identity, entity.ActionRating)
		if err != nil {
			return fmt.Errorf("failed to increment rating counter: %w", err)
		}
		if newCount > s.ratingCap {
			metrics.RecordRateLimitRejection(string(entity.ActionRating))
			return ErrLimitExceeded
		}

		// Пересчёт по полному набору прежних оценок под блокировкой строки
		prior, err := r.Ratings.GetBySemlaID(ctx, semlaID)
		if err != nil {
			return fmt.Errorf("failed to load prior ratings: %w", err)
		}
		newRating = Round2(NewAverage(effectiveScores(prior), score.Effective()))

		rating := newRatingRow(semlaID, score, comment, name)
		if err := r.Ratings.Create(ctx, rating); err != nil {
			return fmt.Errorf("failed to create rating: %w", err)
		}

		if err := r.Semlor.UpdateRating(ctx, semlaID, newRating); err != nil {
			return fmt.Errorf("failed to update semla rating: %w", err)
		}
		semla.Rating = newRating

		if image != nil {
			_, warnings = s.storeImages(ctx, r, semlaID, []entity.ImageUpload{*image})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, entity.EventRatingCreated, semla)
	scoreKind := "legacy"
	if score.IsCategories() {
		scoreKind = "categories"
	}
	metrics.RecordRatingSubmitted(scoreKind, score.Effective())

	return &entity.RateSemlaResult{
		SemlaID:        semlaID.String(),
		NewRating:      newRating,
		UploadWarnings: warnings,
	}, nil
}

// GetAllSemlor получает все семлы с кешированием в Redis
// Сначала проверяет кеш, если нет - загружает из БД и кеширует
func (s *SemlaService) GetAllSemlor(ctx context.Context) ([]entity.SemlaWithImages, error) {
	semlor, err := s.cache.GetSemlor(ctx)
	if err == nil && semlor != nil {
		return semlor, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read semlor cache")
	}

	semlor, err = s.repos.Semlor.GetAllWithImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get semlor: %w", err)
	}

	if err := s.cache.SetSemlor(ctx, semlor, time.Hour); err != nil {
		// Данные получены из БД, проблемы с кешем не критичны
		logger.Warn().Err(err).Msg("failed to cache semlor")
	}

	return semlor, nil
}

// GetComments получает оценки семлы с непустым комментарием, новые первыми
func (s *SemlaService) GetComments(ctx context.Context, semlaID uuid.UUID) ([]entity.CommentResponse, error) {
	if _, err := s.repos.Semlor.GetByID(ctx, semlaID); err != nil {
		if errors.Is(err, repository.ErrSemlaNotFound) {
			return nil, ErrSemlaNotFound
		}
		return nil, fmt.Errorf("failed to get semla: %w", err)
	}

	ratings, err := s.repos.Ratings.GetCommentsBySemlaID(ctx, semlaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	comments := make([]entity.CommentResponse, 0, len(ratings))
	for i := range ratings {
		r := &ratings[i]
		comment := ""
		if r.Comment != nil {
			comment = *r.Comment
		}
		comments = append(comments, entity.CommentResponse{
			Comment: comment,
			Rating:  r.EffectiveScore(),
			Name:    r.Name,
			Date:    r.Date,
		})
	}

	return comments, nil
}

// storeImages загружает файлы в хранилище и сохраняет успешные как строки
// SemlaImage. Провал загрузки не фатален: пишем предупреждение и продолжаем -
// семла может остаться с меньшим числом картинок, но сам сабмишен не падает.
func (s *SemlaService) storeImages(ctx context.Context, r repository.Repositories, semlaID uuid.UUID, files []entity.ImageUpload) ([]entity.SemlaImage, []string) {
	var images []entity.SemlaImage
	var warnings []string

	for i := range files {
		f := &files[i]
		result, err := s.uploader.Upload(ctx, bytes.NewReader(f.Content), int64(len(f.Content)), f.ContentType)
		if err != nil {
			metrics.RecordImageUpload(false)
			logger.Warn().
				Err(err).
				Str("semla_id", semlaID.String()).
				Str("filename", f.Filename).
				Msg("image upload failed, continuing without it")
			warnings = append(warnings, fmt.Sprintf("failed to store image %q", f.Filename))
			continue
		}

		image := &entity.SemlaImage{
			ID:        result.ID,
			SemlaID:   semlaID,
			ImageURL:  result.URL,
			CreatedAt: time.Now(),
		}
		if err := r.Images.Create(ctx, image); err != nil {
			metrics.RecordImageUpload(false)
			logger.Warn().
				Err(err).
				Str("semla_id", semlaID.String()).
				Str("image_id", result.ID.String()).
				Msg("failed to persist image row, continuing without it")
			warnings = append(warnings, fmt.Sprintf("failed to store image %q", f.Filename))
			continue
		}

		metrics.RecordImageUpload(true)
		images = append(images, *image)
	}

	return images, warnings
}

// afterCommit инвалидирует кеш и публикует событие после успешного коммита.
// Обе операции не критичны для сабмишена и при ошибке только логируются.
func (s *SemlaService) afterCommit(ctx context.Context, eventType string, semla *entity.Semla) {
	if err := s.cache.DeleteSemlor(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate semlor cache")
	}

	event := entity.SemlaEvent{
		EventType: eventType,
		SemlaID:   semla.ID,
		Bakery:    semla.Bakery,
		City:      semla.City,
		Rating:    semla.Rating,
		Timestamp: time.Now(),
	}
	if err := s.publishEvent(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish semla event")
	}
}

// publishEvent отправляет событие о семле в Kafka
// Key - это SemlaID для правильного партиционирования
func (s *SemlaService) publishEvent(ctx context.Context, event entity.SemlaEvent) error {
	timer := metrics.NewKafkaProduceTimer("semla", "semla_events")

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal semla event: %w", err)
	}

	if err := s.publisher.PublishMessage(ctx, event.SemlaID.String(), eventData); err != nil {
		timer.Error()
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}

	timer.Success()
	return nil
}

// newRatingRow строит строку оценки из размеченного объединения
func newRatingRow(semlaID uuid.UUID, score entity.Score, comment, name string) *entity.Rating {
	now := time.Now()
	rating := &entity.Rating{
		ID:        uuid.New(),
		SemlaID:   semlaID,
		Name:      name,
		Date:      now,
		CreatedAt: now,
	}

	if comment != "" {
		rating.Comment = &comment
	}

	if cats, ok := score.Categories(); ok {
		rating.Gradde = &cats.Gradde
		rating.Mandelmassa = &cats.Mandelmassa
		rating.Lock = &cats.Lock
		rating.Bulle = &cats.Bulle
		rating.Helhet = &cats.Helhet
	} else {
		legacy := score.Legacy()
		rating.Rating = &legacy
	}

	return rating
}
