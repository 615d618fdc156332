// Package mock provides an in-memory test double for the blob.Store
// interface with a deterministic presigner.
//
// Objects live in a map; presigned URLs are stable, fake, and derived from
// the key, so tests can assert on them without signing machinery:
//
//	store := mock.NewStore()
//	_ = store.PutObject(ctx, "tts/question_1_1.mp3", audio, "audio/mpeg")
//	url, _ := store.PresignGet(ctx, "tts/question_1_1.mp3", 0)
//	// url == "https://blob.test/tts/question_1_1.mp3?verb=GET"
package mock

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/voxhire/voxhire/pkg/blob"
)

// Object is one stored blob with its metadata.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is a mock implementation of blob.Store.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object

	// --- Configurable failures ---

	// PutErr, if non-nil, is returned by PutObject and PutObjectStream.
	PutErr error

	// HeadErr, if non-nil, is returned by Head.
	HeadErr error

	// PresignErr, if non-nil, is returned by PresignPut and PresignGet.
	PresignErr error

	// --- Call records ---

	// PutKeys records every stored key in order (both byte and stream puts).
	PutKeys []string

	// DeletedKeys records every Delete call in order.
	DeletedKeys []string

	// HeadKeys records every Head call in order.
	HeadKeys []string

	// PresignPutCalls and PresignGetCalls record the keys presigned, with the
	// effective TTL after defaulting.
	PresignPutCalls []PresignCall
	PresignGetCalls []PresignCall
}

// PresignCall records a single presign invocation.
type PresignCall struct {
	Key string
	TTL time.Duration
}

// NewStore returns an empty mock store.
func NewStore() *Store {
	return &Store{objects: make(map[string]Object)}
}

// Seed stores an object directly, bypassing call records. Handy for
// arranging cache-hit scenarios.
func (s *Store) Seed(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: data, ContentType: contentType}
}

// Get returns the stored object and whether it exists.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// PutObject stores data under key.
func (s *Store) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutKeys = append(s.PutKeys, key)
	if s.PutErr != nil {
		return s.PutErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = Object{Data: cp, ContentType: contentType}
	return nil
}

// PutObjectStream reads r fully and stores the bytes under key.
func (s *Store) PutObjectStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.PutObject(ctx, key, data, contentType)
}

// PresignPut returns a deterministic fake URL for key.
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s.PresignPutCalls = append(s.PresignPutCalls, PresignCall{Key: key, TTL: ttl})
	if s.PresignErr != nil {
		return "", s.PresignErr
	}
	return fmt.Sprintf("https://blob.test/%s?verb=PUT", key), nil
}

// PresignGet returns a deterministic fake URL for key.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		ttl = time.Hour
	}
	s.PresignGetCalls = append(s.PresignGetCalls, PresignCall{Key: key, TTL: ttl})
	if s.PresignErr != nil {
		return "", s.PresignErr
	}
	return fmt.Sprintf("https://blob.test/%s?verb=GET", key), nil
}

// Head reports whether key was stored or seeded.
func (s *Store) Head(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HeadKeys = append(s.HeadKeys, key)
	if s.HeadErr != nil {
		return false, s.HeadErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

// Delete removes key, recording the call. Never fails.
func (s *Store) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeletedKeys = append(s.DeletedKeys, key)
	delete(s.objects, key)
}

// Reset clears all objects, configured failures, and recorded calls.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]Object)
	s.PutErr, s.HeadErr, s.PresignErr = nil, nil, nil
	s.PutKeys, s.DeletedKeys, s.HeadKeys = nil, nil, nil
	s.PresignPutCalls, s.PresignGetCalls = nil, nil
}

// Ensure Store implements blob.Store at compile time.
var _ blob.Store = (*Store)(nil)
