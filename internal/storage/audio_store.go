package storage

import (
	"bytes"
	"fmt"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/prepview/prepview/config"
)

// AudioPathPrefix scopes interview recordings inside the bucket. The
// transcription trigger ignores every object outside this prefix.
const AudioPathPrefix = "interviews/"

// AudioKey derives the deterministic object key for a recording so that a
// retried upload overwrites rather than duplicates.
func AudioKey(ownerID, sessionID, questionID string) string {
	return fmt.Sprintf("%s%s/%s/%s.m4a", AudioPathPrefix, ownerID, sessionID, questionID)
}

// AudioStore is the durable blob storage for recorded answers.
type AudioStore interface {
	PutAudio(key string, data []byte, contentType string, metadata map[string]string) (url string, err error)
	GetAudio(key string) ([]byte, error)
	SignedURL(key string) (string, error)
}

type ossStore struct {
	bucket     *oss.Bucket
	bucketName string
	endpoint   string
}

// NewOSSStore connects to the configured OSS bucket.
func NewOSSStore(cfg *config.Config) (AudioStore, error) {
	client, err := oss.New(cfg.OSS.Endpoint, cfg.OSS.AccessKeyID, cfg.OSS.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.OSS.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &ossStore{
		bucket:     bucket,
		bucketName: cfg.OSS.BucketName,
		endpoint:   cfg.OSS.Endpoint,
	}, nil
}

func (s *ossStore) PutAudio(key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	options := []oss.Option{oss.ContentType(contentType)}
	for k, v := range metadata {
		options = append(options, oss.Meta(k, v))
	}

	if err := s.bucket.PutObject(key, bytes.NewReader(data), options...); err != nil {
		return "", fmt.Errorf("failed to upload audio object: %w", err)
	}

	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, s.endpoint, key), nil
}

func (s *ossStore) GetAudio(key string) ([]byte, error) {
	body, err := s.bucket.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio object '%s': %w", key, err)
	}
	defer body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("failed to read audio object '%s': %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *ossStore) SignedURL(key string) (string, error) {
	signedURL, err := s.bucket.SignURL(key, oss.HTTPGet, 3600)
	if err != nil {
		return "", fmt.Errorf("failed to sign audio URL: %w", err)
	}
	return signedURL, nil
}
