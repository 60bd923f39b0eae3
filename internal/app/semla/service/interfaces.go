package service

import (
	"context"

	"semelfinder/internal/app/semla/entity"

	"github.com/google/uuid"
)

type SemlaServiceInterface interface {
	CreateSemla(ctx context.Context, identity entity.IdentityKey, req *entity.CreateSemlaRequest, files []entity.ImageUpload) (*entity.CreateSemlaResult, error)
	RateSemla(ctx context.Context, identity entity.IdentityKey, semlaID uuid.UUID, score entity.Score, comment, name string, image *entity.ImageUpload) (*entity.RateSemlaResult, error)
	GetAllSemlor(ctx context.Context) ([]entity.SemlaWithImages, error)
	GetComments(ctx context.Context, semlaID uuid.UUID) ([]entity.CommentResponse, error)
}
