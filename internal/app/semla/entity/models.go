package entity

import (
	"time"

	"github.com/google/uuid"
)

// Semla представляет семлу в каталоге
// Rating - агрегат: среднее всех эффективных оценок, округлённое до 2 знаков.
// Обновляется только оркестратором внутри транзакции, клиент задать его не может.
type Semla struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Bakery    string       `json:"bakery" gorm:"not null"`
	City      string       `json:"city" gorm:"not null"`
	Picture   string       `json:"picture"` // Легаси-путь картинки из CSV импорта (/images/...)
	Vegan     bool         `json:"vegan" gorm:"default:false"`
	Price     float64      `json:"price" gorm:"type:numeric(5,2);not null"`
	Kind      string       `json:"kind" gorm:"not null"`
	Rating    float64      `json:"rating" gorm:"type:numeric(3,2);default:0"`
	CreatedAt time.Time    `json:"created_at"`
	Images    []SemlaImage `json:"-" gorm:"foreignKey:SemlaID;constraint:OnDelete:CASCADE"`
}

func (Semla) TableName() string {
	return "semlor"
}

// SemlaImage - загруженная картинка семлы
// ID одновременно является ключом объекта в хранилище
type SemlaImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SemlaID   uuid.UUID `json:"semla_id" gorm:"type:uuid;index;not null"`
	ImageURL  string    `json:"image_url" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (SemlaImage) TableName() string {
	return "semla_images"
}

// Rating - одна отправленная оценка. Создаётся один раз, не изменяется.
// Либо легаси-оценка Rating (1-5), либо пять категорий (1-5 каждая) -
// ровно одно из представлений присутствует.
type Rating struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SemlaID     uuid.UUID `json:"semla_id" gorm:"type:uuid;index;not null"`
	Rating      *int      `json:"rating,omitempty"`
	Gradde      *int      `json:"gradde,omitempty"`
	Mandelmassa *int      `json:"mandelmassa,omitempty"`
	Lock        *int      `json:"lock,omitempty"`
	Bulle       *int      `json:"bulle,omitempty"`
	Helhet      *int      `json:"helhet,omitempty"`
	Comment     *string   `json:"comment,omitempty"`
	Name        string    `json:"name,omitempty"`
	Date        time.Time `json:"date" gorm:"type:date"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

// EffectiveScore возвращает скалярную оценку строки:
// среднее пяти категорий, если все пять заполнены, иначе легаси-оценка
func (r *Rating) EffectiveScore() float64 {
	cats := []*int{r.Gradde, r.Mandelmassa, r.Lock, r.Bulle, r.Helhet}
	sum := 0
	for _, c := range cats {
		if c == nil || *c == 0 {
			if r.Rating != nil {
				return float64(*r.Rating)
			}
			return 0
		}
		sum += *c
	}
	return float64(sum) / 5
}

// ActionKind различает дневные лимиты для создания семлы и для оценки
type ActionKind string

const (
	ActionSemlaCreation ActionKind = "semla_creation"
	ActionRating        ActionKind = "rating"
)

// ActionTracker - счётчик действий одной идентичности за календарный день.
// Уникальный индекс гарантирует не более одной строки на
// (ip, user agent, день, вид действия); инкремент идёт атомарным upsert.
type ActionTracker struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	IPAddress string     `json:"ip_address" gorm:"not null;uniqueIndex:idx_action_tracker_identity"`
	UserAgent string     `json:"user_agent" gorm:"not null;uniqueIndex:idx_action_tracker_identity"`
	Date      time.Time  `json:"date" gorm:"type:date;not null;uniqueIndex:idx_action_tracker_identity"`
	Action    ActionKind `json:"action" gorm:"not null;uniqueIndex:idx_action_tracker_identity"`
	Count     int        `json:"count" gorm:"not null;default:1"`
}

func (ActionTracker) TableName() string {
	return "action_trackers"
}

// IdentityKey - ключ рейт-лимита: сетевой адрес + user agent + календарный день.
// Используется только для лимитов, это не аутентификация.
type IdentityKey struct {
	IPAddress string
	UserAgent string
	Day       string // Локальная дата сервера в формате 2006-01-02
}

// NewIdentityKey выводит ключ идентичности на момент now.
// Пустой адрес допустим на уровне типа: оркестратор отвергает такой ключ
// ошибкой ErrIdentityUndetermined до любой записи.
func NewIdentityKey(ip, userAgent string, now time.Time) IdentityKey {
	return IdentityKey{
		IPAddress: ip,
		UserAgent: userAgent,
		Day:       now.Format("2006-01-02"),
	}
}

// SemlaEvent представляет событие для Kafka
type SemlaEvent struct {
	EventType string    `json:"event_type"` // SEMLA_CREATED, RATING_CREATED
	SemlaID   uuid.UUID `json:"semla_id"`
	Bakery    string    `json:"bakery"`
	City      string    `json:"city"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventSemlaCreated  = "SEMLA_CREATED"
	EventRatingCreated = "RATING_CREATED"
)
