package repository

import (
	"context"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/pkg/database"

	"github.com/minio/minio-go/v7"
)

// MediaRepository definition out-of-band media referenced by messages
type MediaRepository interface {
	// Exists domain.ErrMediaNotFound when the object is missing
	Exists(ctx context.Context, ref string) error
	PresignedURL(ctx context.Context, ref string) (string, error)
}

type minioMediaRepository struct {
	client *database.MinIOClient
	expiry time.Duration
}

// NewMinIOMediaRepository create a MediaRepository over a bucket
func NewMinIOMediaRepository(client *database.MinIOClient, expiry time.Duration) MediaRepository {
	return &minioMediaRepository{client: client, expiry: expiry}
}

func (r *minioMediaRepository) Exists(ctx context.Context, ref string) error {
	_, err := r.client.Client.StatObject(ctx, r.client.BucketName, ref, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return domain.ErrMediaNotFound
		}
		return err
	}
	return nil
}

func (r *minioMediaRepository) PresignedURL(ctx context.Context, ref string) (string, error) {
	return r.client.PresignGetURL(ctx, ref, r.expiry)
}
