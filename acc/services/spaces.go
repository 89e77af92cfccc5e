// Package services holds the thin wrappers around external
// collaborators and the cached read paths built on top of the
// repositories.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignExpiry = 15 * time.Minute

// SpacesService issues presigned URLs for avatar objects stored in a
// DigitalOcean Spaces bucket.
type SpacesService struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	region     string
	AvatarRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, avatarRoot string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	client := s3.NewFromConfig(cfg)

	return &SpacesService{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     bucket,
		region:     region,
		AvatarRoot: strings.TrimPrefix(avatarRoot, "/"),
	}
}

func (s *SpacesService) avatarKey(userID int64) string {
	return fmt.Sprintf("%s/%d.jpg", s.AvatarRoot, userID)
}

// AvatarURL returns a presigned GET URL for the user's avatar object.
func (s *SpacesService) AvatarURL(ctx context.Context, userID int64) (string, error) {
	key := s.avatarKey(userID)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))

	if err != nil {
		return "", fmt.Errorf("failed to presign avatar GET: %w", err)
	}
	return req.URL, nil
}

// AvatarUploadURL returns a presigned PUT URL the client uploads the
// new avatar to directly.
func (s *SpacesService) AvatarUploadURL(ctx context.Context, userID int64) (string, string, error) {
	key := s.avatarKey(userID)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))

	if err != nil {
		return "", "", fmt.Errorf("failed to presign avatar PUT: %w", err)
	}
	return req.URL, key, nil
}

// DeleteAvatar removes the stored avatar object.
func (s *SpacesService) DeleteAvatar(ctx context.Context, userID int64) error {
	key := s.avatarKey(userID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})

	if err != nil {
		return fmt.Errorf("failed to delete avatar (%s): %v", key, err)
	}
	return nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}
