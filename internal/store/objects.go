package store

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ObjectStore holds uploaded document blobs, addressed by bucket and path.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	Remove(ctx context.Context, bucket, path string) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)
}

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryObjectStore is an ObjectStore for local development and tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

func NewMemoryObjectStore(baseURL string) *MemoryObjectStore {
	return &MemoryObjectStore{baseURL: baseURL, objects: make(map[string]memoryObject)}
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}

func (m *MemoryObjectStore) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := objectKey(bucket, path)
	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("object %s: %w", key, ErrConflict)
	}
	m.objects[key] = memoryObject{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (m *MemoryObjectStore) Remove(ctx context.Context, bucket, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey(bucket, path))
	return nil
}

func (m *MemoryObjectStore) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[objectKey(bucket, path)]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", objectKey(bucket, path), ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryObjectStore) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.objects[objectKey(bucket, path)]; !ok {
		return "", fmt.Errorf("object %s: %w", objectKey(bucket, path), ErrNotFound)
	}
	q := url.Values{"expires_in": {fmt.Sprint(int(expiresIn.Seconds()))}}
	return fmt.Sprintf("%s/objects/%s/%s?%s", m.baseURL, bucket, path, q.Encode()), nil
}

// Has reports whether an object exists.
func (m *MemoryObjectStore) Has(bucket, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectKey(bucket, path)]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryObjectStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
