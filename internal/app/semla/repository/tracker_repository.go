package repository

import (
	"context"
	"errors"
	"time"

	"semelfinder/internal/app/semla/entity"

	"gorm.io/gorm"
)

type trackerRepository struct {
	db *gorm.DB
}

// NewTrackerRepository создает новый репозиторий счётчиков действий
func NewTrackerRepository(db *gorm.DB) TrackerRepository {
	return &trackerRepository{db: db}
}

// CountToday возвращает число действий идентичности за день, 0 если строки нет
func (r *trackerRepository) CountToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error) {
	var count int
	result := r.db.WithContext(ctx).
		Model(&entity.ActionTracker{}).
		Select("count").
		Where("ip_address = ? AND user_agent = ? AND date = ? AND action = ?",
			key.IPAddress, key.UserAgent, key.Day, action).
		Take(&count)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}

	return count, nil
}

// IncrementToday атомарно инкрементит дневной счётчик и возвращает новое значение.
// Upsert одним стейтментом: уникальный индекс не даёт двум конкурентным первым
// запросам создать две строки, а блокировка строки при DO UPDATE сериализует
// конкурентные инкременты одной идентичности.
func (r *trackerRepository) IncrementToday(ctx context.Context, key entity.IdentityKey, action entity.ActionKind) (int, error) {
	var count int
	result := r.db.WithContext(ctx).Raw(
		`INSERT INTO action_trackers (ip_address, user_agent, date, action, count)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT (ip_address, user_agent, date, action)
		 DO UPDATE SET count = action_trackers.count + 1
		 RETURNING count`,
		key.IPAddress, key.UserAgent, key.Day, action,
	).Scan(&count)

	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// DeleteOlderThan удаляет строки счётчиков старше cutoff, возвращает число удалённых
func (r *trackerRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", cutoff.Format("2006-01-02")).
		Delete(&entity.ActionTracker{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
