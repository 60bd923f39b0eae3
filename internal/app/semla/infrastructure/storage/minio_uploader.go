package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"semelfinder/internal/app/semla/infrastructure"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Расширения для разрешённых типов картинок.
// Тип вне этого списка отсекается валидацией до загрузчика.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// MinioUploader кладёт картинки в MinIO под ключом {prefix}/{uuid}.{ext}
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	prefix    string
	publicURL string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	PublicURL string // База публичных URL, например http://localhost:9000/semla-images
	UseSSL    bool
}

// NewMinioUploader создает клиент MinIO и проверяет доступность бакета
func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: cfg.PublicURL,
	}, nil
}

// Upload сохраняет картинку под свежим случайным идентификатором
// и возвращает идентификатор вместе с публичным URL
func (u *MinioUploader) Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (*infrastructure.UploadResult, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	id := uuid.New()
	key := fmt.Sprintf("%s/%s.%s", u.prefix, id, ext)

	_, err := u.client.PutObject(ctx, u.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object: %w", err)
	}

	return &infrastructure.UploadResult{
		ID:  id,
		URL: fmt.Sprintf("%s/%s", u.publicURL, key),
	}, nil
}
