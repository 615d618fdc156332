// Package blob defines the object-store gateway used for every media artifact
// the orchestration core touches: answer videos, resumes, TTS audio, rendered
// avatar videos, and the content-addressed avatar cache.
//
// The central type is [Store]. Production code binds it to S3 via
// github.com/voxhire/voxhire/pkg/blob/s3; tests use the deterministic
// in-memory stub in github.com/voxhire/voxhire/pkg/blob/mock.
//
// Object key layouts are deterministic and owned by this package (keys.go).
// Entities persist these keys, never presigned URLs; URLs are minted on
// demand with a short validity window.
package blob

import (
	"context"
	"io"
	"time"
)

// Default validity windows for presigned URLs. Both are overridable per call;
// a non-positive ttl selects the default.
const (
	DefaultGetTTL = time.Hour
	DefaultPutTTL = 15 * time.Minute
)

// Store is the blob-store gateway.
//
// All operations except Delete surface failures to the caller; Delete is
// best-effort janitorial work whose failures are logged and swallowed by the
// implementation.
type Store interface {
	// PutObject uploads data under key with the given content type,
	// overwriting any existing object (last writer wins).
	PutObject(ctx context.Context, key string, data []byte, contentType string) error

	// PutObjectStream uploads size bytes read from r under key.
	PutObjectStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// PresignPut mints a URL authorizing a single PUT of the given content
	// type under key. ttl <= 0 selects DefaultPutTTL.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// PresignGet mints a URL authorizing GETs of key. ttl <= 0 selects
	// DefaultGetTTL.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Head reports whether an object exists under key.
	Head(ctx context.Context, key string) (bool, error)

	// Delete removes the object under key, best-effort.
	Delete(ctx context.Context, key string)
}
