// Package store defines the persistence contracts for the interview
// orchestration core.
//
// Each entity family gets its own narrow interface so services depend only on
// the operations they use. The [Store] bundle groups one implementation of
// every interface; the composition root fills it wholesale from either
// [postgres] or [memstore].
//
// All implementations must be safe for concurrent use. Lookup misses surface
// as [domain.NotFoundError], uniqueness violations as [domain.DuplicateError],
// and rejected status changes as [domain.IllegalStateError], regardless of
// backend.
package store

import (
	"context"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
)

// Interviews persists the interview aggregate root.
type Interviews interface {
	// Create inserts iv and fills its ID and CreatedAt.
	// The interview starts in [domain.StatusCreated] unless iv says otherwise.
	Create(ctx context.Context, iv *domain.Interview) error

	// Get retrieves an interview by id.
	// Returns [domain.NotFoundError] when no such interview exists.
	Get(ctx context.Context, id int64) (domain.Interview, error)

	// GetForUser retrieves an interview by id, scoped to its owner.
	// A foreign or missing id returns the same [domain.NotFoundError] so
	// callers cannot distinguish the two.
	GetForUser(ctx context.Context, id, userID int64) (domain.Interview, error)

	// ListByUser returns the user's interviews, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Interview, error)

	// TransitionStatus moves the interview from one status to another as a
	// single compare-and-swap. Moving into [domain.StatusProcessing] also
	// stamps CompletedAt.
	//
	// Returns [domain.IllegalStateError] carrying the actual current status
	// when the interview is not in from, and [domain.NotFoundError] when the
	// id does not exist.
	TransitionStatus(ctx context.Context, id int64, from, to domain.Status) error

	// SetOverallScore records the aggregate feedback score.
	// Returns [domain.NotFoundError] when the id does not exist.
	SetOverallScore(ctx context.Context, id int64, score int) error

	// ListStuck returns interviews sitting in status for longer than
	// olderThan, measured from CompletedAt when set and CreatedAt otherwise.
	// The recovery sweeper is its only caller.
	ListStuck(ctx context.Context, status domain.Status, olderThan time.Duration) ([]domain.Interview, error)
}

// Questions persists generated interview questions.
type Questions interface {
	// CreateBatch inserts all questions in order and fills their IDs and
	// CreatedAt stamps. Callers run it inside the transaction that creates
	// the owning interview.
	CreateBatch(ctx context.Context, qs []*domain.Question) error

	// Get retrieves a question by id.
	// Returns [domain.NotFoundError] when no such question exists.
	Get(ctx context.Context, id int64) (domain.Question, error)

	// ListByInterview returns the interview's questions ordered by ordinal.
	ListByInterview(ctx context.Context, interviewID int64) ([]domain.Question, error)

	// SetAvatarKey records the blob-store key of the question's rendered
	// avatar video. The key transitions null to set exactly once: a second
	// write returns [domain.DuplicateError] and keeps the first key. Returns
	// [domain.NotFoundError] when the id does not exist.
	SetAvatarKey(ctx context.Context, id int64, objectKey string) error
}

// Responses persists candidate answers. At most one response exists per
// question.
type Responses interface {
	// Create inserts r and fills its ID and CreatedAt.
	// Returns [domain.DuplicateError] when the question already has a response.
	Create(ctx context.Context, r *domain.Response) error

	// ListByInterview returns the interview's responses in question order.
	ListByInterview(ctx context.Context, interviewID int64) ([]domain.Response, error)

	// GetByQuestion retrieves the response for a question.
	// Returns [domain.NotFoundError] when the question has no response.
	GetByQuestion(ctx context.Context, questionID int64) (domain.Response, error)

	// SetTranscription records the speech-to-text result for a response.
	// Returns [domain.NotFoundError] when the id does not exist.
	SetTranscription(ctx context.Context, id int64, text string, confidence float64) error
}

// Feedbacks persists the per-interview evaluation.
type Feedbacks interface {
	// Create inserts f and fills its ID and GeneratedAt.
	// Returns [domain.DuplicateError] when the interview already has feedback.
	Create(ctx context.Context, f *domain.Feedback) error

	// GetByInterview retrieves the feedback for an interview.
	// Returns [domain.NotFoundError] when none exists yet.
	GetByInterview(ctx context.Context, interviewID int64) (domain.Feedback, error)
}

// TTSCache maps synthesis fingerprints to stored audio blobs.
type TTSCache interface {
	// Lookup returns the entry for cacheKey and whether one exists.
	Lookup(ctx context.Context, cacheKey string) (domain.TTSCacheEntry, bool, error)

	// Store records entry. Concurrent writers may race on the same key;
	// the first row wins and later writes are silently dropped.
	Store(ctx context.Context, entry domain.TTSCacheEntry) error
}

// AvatarCache maps render fingerprints to stored video blobs.
type AvatarCache interface {
	// Lookup returns the entry for cacheKey and whether one exists.
	Lookup(ctx context.Context, cacheKey string) (domain.AvatarCacheEntry, bool, error)

	// Store records entry. First writer wins on key collisions.
	Store(ctx context.Context, entry domain.AvatarCacheEntry) error
}

// Resumes reads and writes uploaded candidate resumes.
type Resumes interface {
	// Create inserts r and fills its ID and CreatedAt.
	Create(ctx context.Context, r *domain.Resume) error

	// GetForUser retrieves a resume by id, scoped to its owner.
	// A foreign or missing id returns [domain.NotFoundError].
	GetForUser(ctx context.Context, id, userID int64) (domain.Resume, error)
}

// JobRoles reads and writes the job-role catalogue.
type JobRoles interface {
	// Get retrieves a job role by id.
	// Returns [domain.NotFoundError] when no such role exists.
	Get(ctx context.Context, id int64) (domain.JobRole, error)

	// List returns every job role ordered by title.
	List(ctx context.Context) ([]domain.JobRole, error)

	// Create inserts jr and fills its ID.
	Create(ctx context.Context, jr *domain.JobRole) error
}

// TxRunner executes a function inside one database transaction.
//
// The context passed to fn carries the transaction; store methods called with
// it join automatically. fn returning an error rolls the transaction back.
// Events published on the bus during fn are staged and dispatched only after
// a successful commit (see the events package).
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles one implementation of every persistence interface.
type Store struct {
	Interviews  Interviews
	Questions   Questions
	Responses   Responses
	Feedbacks   Feedbacks
	TTSCache    TTSCache
	AvatarCache AvatarCache
	Resumes     Resumes
	JobRoles    JobRoles
	Tx          TxRunner
}
