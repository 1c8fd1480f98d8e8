package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
	"uk-eta-backend/internal/store"
)

// StorageClient stores document blobs in Supabase Storage buckets.
type StorageClient struct {
	client  *storage.Client
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey string) (*StorageClient, error) {
	if supabaseURL == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("supabase url and service role key are required for storage")
	}
	baseURL := strings.TrimRight(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (s *StorageClient) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	upsert := false
	_, err := s.client.UploadFile(bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (s *StorageClient) Remove(ctx context.Context, bucket, path string) error {
	if _, err := s.client.RemoveFile(bucket, []string{path}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (s *StorageClient) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s/%s: %w", bucket, path, err)
	}
	return data, nil
}

func (s *StorageClient) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	resp, err := s.client.CreateSignedUrl(bucket, path, int(expiresIn.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s/%s: %w", bucket, path, err)
	}
	signed := resp.SignedURL
	if strings.HasPrefix(signed, "/") {
		signed = s.baseURL + "/storage/v1" + signed
	}
	return signed, nil
}

var _ store.ObjectStore = (*StorageClient)(nil)
