package infrastructure

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// UploadResult - результат успешной загрузки картинки
type UploadResult struct {
	ID  uuid.UUID // Ключ объекта в хранилище, случайные 128 бит
	URL string    // Публичный URL для чтения
}

// ImageUploader - контракт объектного хранилища картинок.
// Ошибка загрузки для вызывающего не фатальна: сабмишен продолжается
// без этой картинки
type ImageUploader interface {
	Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (*UploadResult, error)
}

// MessagePublisher интерфейс для отправки событий в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
