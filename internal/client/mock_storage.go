package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockStorage keeps uploads in memory and hands out stable fake URLs. It backs
// storage.driver=none and tests.
type MockStorage struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMockStorage(baseURL string) *MockStorage {
	if baseURL == "" {
		baseURL = "https://storage.mock.local"
	}
	return &MockStorage{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MockStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return m.GetPublicURL(key), nil
}

func (m *MockStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MockStorage) GetSignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("%s/%s?expires=%d", m.BaseURL, key, int(expiry.Seconds())), nil
}

func (m *MockStorage) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.BaseURL, key)
}

// Object returns a stored object, for assertions in tests.
func (m *MockStorage) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}
