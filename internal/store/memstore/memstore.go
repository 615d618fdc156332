// Package memstore provides a thread-safe, in-memory implementation of the
// persistence contracts in [github.com/voxhire/voxhire/internal/store].
//
// It mirrors the error semantics of the PostgreSQL backend (not-found,
// duplicate, and illegal-state errors) so services and their tests behave
// identically against either. It is suitable for tests and single-process
// experiments; nothing is persisted.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/events"
	"github.com/voxhire/voxhire/internal/store"
)

// Compile-time interface checks.
var (
	_ store.Interviews  = (*interviewStore)(nil)
	_ store.Questions   = (*questionStore)(nil)
	_ store.Responses   = (*responseStore)(nil)
	_ store.Feedbacks   = (*feedbackStore)(nil)
	_ store.TTSCache    = (*ttsCacheStore)(nil)
	_ store.AvatarCache = (*avatarCacheStore)(nil)
	_ store.Resumes     = (*resumeStore)(nil)
	_ store.JobRoles    = (*jobRoleStore)(nil)
	_ store.TxRunner    = (*TxRunner)(nil)
)

// Store holds every entity family in process memory behind one mutex.
// Obtain the individual stores via [Store.Bundle].
type Store struct {
	mu sync.RWMutex

	interviews  map[int64]domain.Interview
	questions   map[int64]domain.Question
	responses   map[int64]domain.Response
	feedbacks   map[int64]domain.Feedback
	ttsCache    map[string]domain.TTSCacheEntry
	avatarCache map[string]domain.AvatarCacheEntry
	resumes     map[int64]domain.Resume
	jobRoles    map[int64]domain.JobRole

	nextID int64
}

// New returns an initialised [Store].
func New() *Store {
	return &Store{
		interviews:  make(map[int64]domain.Interview),
		questions:   make(map[int64]domain.Question),
		responses:   make(map[int64]domain.Response),
		feedbacks:   make(map[int64]domain.Feedback),
		ttsCache:    make(map[string]domain.TTSCacheEntry),
		avatarCache: make(map[string]domain.AvatarCacheEntry),
		resumes:     make(map[int64]domain.Resume),
		jobRoles:    make(map[int64]domain.JobRole),
	}
}

// Bundle returns a [store.Store] with every interface backed by this Store.
// afterCommit, when non-nil, runs after each successful [TxRunner.WithinTx].
func (s *Store) Bundle(afterCommit func(ctx context.Context)) store.Store {
	return store.Store{
		Interviews:  &interviewStore{s: s},
		Questions:   &questionStore{s: s},
		Responses:   &responseStore{s: s},
		Feedbacks:   &feedbackStore{s: s},
		TTSCache:    &ttsCacheStore{s: s},
		AvatarCache: &avatarCacheStore{s: s},
		Resumes:     &resumeStore{s: s},
		JobRoles:    &jobRoleStore{s: s},
		Tx:          &TxRunner{afterCommit: afterCommit},
	}
}

// SeedInterview inserts iv verbatim, preserving its ID, status, and
// timestamps. Tests use it to construct histories Create cannot produce,
// such as backdated rows for the recovery sweeper.
func (s *Store) SeedInterview(iv domain.Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if iv.ID == 0 {
		iv.ID = s.allocID()
	}
	s.interviews[iv.ID] = iv
}

// allocID hands out process-unique ids. Callers must hold mu.
func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// ─────────────────────────────────────────────────────────────────────────────
// Interviews
// ─────────────────────────────────────────────────────────────────────────────

type interviewStore struct {
	s *Store
}

// Create implements [store.Interviews].
func (v *interviewStore) Create(ctx context.Context, iv *domain.Interview) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	iv.ID = v.s.allocID()
	if iv.Status == "" {
		iv.Status = domain.StatusCreated
	}
	iv.CreatedAt = time.Now()
	v.s.interviews[iv.ID] = *iv
	return nil
}

// Get implements [store.Interviews].
func (v *interviewStore) Get(ctx context.Context, id int64) (domain.Interview, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	iv, ok := v.s.interviews[id]
	if !ok {
		return domain.Interview{}, &domain.NotFoundError{Entity: "interview"}
	}
	return iv, nil
}

// GetForUser implements [store.Interviews].
func (v *interviewStore) GetForUser(ctx context.Context, id, userID int64) (domain.Interview, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	iv, ok := v.s.interviews[id]
	if !ok || iv.UserID != userID {
		return domain.Interview{}, &domain.NotFoundError{Entity: "interview"}
	}
	return iv, nil
}

// ListByUser implements [store.Interviews].
func (v *interviewStore) ListByUser(ctx context.Context, userID int64) ([]domain.Interview, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	result := []domain.Interview{}
	for _, iv := range v.s.interviews {
		if iv.UserID == userID {
			result = append(result, iv)
		}
	}
	slices.SortFunc(result, func(a, b domain.Interview) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return result, nil
}

// TransitionStatus implements [store.Interviews].
func (v *interviewStore) TransitionStatus(ctx context.Context, id int64, from, to domain.Status) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	iv, ok := v.s.interviews[id]
	if !ok {
		return &domain.NotFoundError{Entity: "interview"}
	}
	if iv.Status != from {
		return &domain.IllegalStateError{From: iv.Status, To: to}
	}

	iv.Status = to
	if to == domain.StatusProcessing {
		now := time.Now()
		iv.CompletedAt = &now
	}
	v.s.interviews[id] = iv
	return nil
}

// SetOverallScore implements [store.Interviews].
func (v *interviewStore) SetOverallScore(ctx context.Context, id int64, score int) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	iv, ok := v.s.interviews[id]
	if !ok {
		return &domain.NotFoundError{Entity: "interview"}
	}
	iv.OverallScore = &score
	v.s.interviews[id] = iv
	return nil
}

// ListStuck implements [store.Interviews].
func (v *interviewStore) ListStuck(ctx context.Context, status domain.Status, olderThan time.Duration) ([]domain.Interview, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)

	result := []domain.Interview{}
	for _, iv := range v.s.interviews {
		if iv.Status != status {
			continue
		}
		ref := iv.CreatedAt
		if iv.CompletedAt != nil {
			ref = *iv.CompletedAt
		}
		if ref.Before(cutoff) {
			result = append(result, iv)
		}
	}
	slices.SortFunc(result, func(a, b domain.Interview) int {
		return int(a.ID - b.ID)
	})
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Questions
// ─────────────────────────────────────────────────────────────────────────────

type questionStore struct {
	s *Store
}

// CreateBatch implements [store.Questions].
func (v *questionStore) CreateBatch(ctx context.Context, qs []*domain.Question) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, q := range qs {
		q.ID = v.s.allocID()
		q.CreatedAt = time.Now()
		v.s.questions[q.ID] = *q
	}
	return nil
}

// Get implements [store.Questions].
func (v *questionStore) Get(ctx context.Context, id int64) (domain.Question, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	q, ok := v.s.questions[id]
	if !ok {
		return domain.Question{}, &domain.NotFoundError{Entity: "question"}
	}
	return q, nil
}

// ListByInterview implements [store.Questions].
func (v *questionStore) ListByInterview(ctx context.Context, interviewID int64) ([]domain.Question, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	result := []domain.Question{}
	for _, q := range v.s.questions {
		if q.InterviewID == interviewID {
			result = append(result, q)
		}
	}
	slices.SortFunc(result, func(a, b domain.Question) int {
		return a.Ordinal - b.Ordinal
	})
	return result, nil
}

// SetAvatarKey implements [store.Questions].
func (v *questionStore) SetAvatarKey(ctx context.Context, id int64, objectKey string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	q, ok := v.s.questions[id]
	if !ok {
		return &domain.NotFoundError{Entity: "question"}
	}
	if q.AvatarObjectKey != nil {
		return &domain.DuplicateError{Entity: "avatar key"}
	}
	q.AvatarObjectKey = &objectKey
	v.s.questions[id] = q
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

type responseStore struct {
	s *Store
}

// Create implements [store.Responses].
func (v *responseStore) Create(ctx context.Context, r *domain.Response) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, existing := range v.s.responses {
		if existing.QuestionID == r.QuestionID {
			return &domain.DuplicateError{Entity: "response"}
		}
	}

	r.ID = v.s.allocID()
	r.CreatedAt = time.Now()
	v.s.responses[r.ID] = *r
	return nil
}

// ListByInterview implements [store.Responses].
func (v *responseStore) ListByInterview(ctx context.Context, interviewID int64) ([]domain.Response, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	result := []domain.Response{}
	for _, r := range v.s.responses {
		if r.InterviewID == interviewID {
			result = append(result, r)
		}
	}
	slices.SortFunc(result, func(a, b domain.Response) int {
		return v.s.questions[a.QuestionID].Ordinal - v.s.questions[b.QuestionID].Ordinal
	})
	return result, nil
}

// GetByQuestion implements [store.Responses].
func (v *responseStore) GetByQuestion(ctx context.Context, questionID int64) (domain.Response, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	for _, r := range v.s.responses {
		if r.QuestionID == questionID {
			return r, nil
		}
	}
	return domain.Response{}, &domain.NotFoundError{Entity: "response"}
}

// SetTranscription implements [store.Responses].
func (v *responseStore) SetTranscription(ctx context.Context, id int64, text string, confidence float64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	r, ok := v.s.responses[id]
	if !ok {
		return &domain.NotFoundError{Entity: "response"}
	}
	r.Transcription = &text
	r.TranscriptionConfidence = &confidence
	v.s.responses[id] = r
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Feedbacks
// ─────────────────────────────────────────────────────────────────────────────

type feedbackStore struct {
	s *Store
}

// Create implements [store.Feedbacks].
func (v *feedbackStore) Create(ctx context.Context, f *domain.Feedback) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, existing := range v.s.feedbacks {
		if existing.InterviewID == f.InterviewID {
			return &domain.DuplicateError{Entity: "feedback"}
		}
	}

	f.ID = v.s.allocID()
	f.GeneratedAt = time.Now()
	f.Strengths = orEmpty(f.Strengths)
	f.Weaknesses = orEmpty(f.Weaknesses)
	f.Recommendations = orEmpty(f.Recommendations)
	v.s.feedbacks[f.ID] = *f
	return nil
}

// GetByInterview implements [store.Feedbacks].
func (v *feedbackStore) GetByInterview(ctx context.Context, interviewID int64) (domain.Feedback, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	for _, f := range v.s.feedbacks {
		if f.InterviewID == interviewID {
			return f, nil
		}
	}
	return domain.Feedback{}, &domain.NotFoundError{Entity: "feedback"}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// ─────────────────────────────────────────────────────────────────────────────
// Caches
// ─────────────────────────────────────────────────────────────────────────────

type ttsCacheStore struct {
	s *Store
}

// Lookup implements [store.TTSCache].
func (v *ttsCacheStore) Lookup(ctx context.Context, cacheKey string) (domain.TTSCacheEntry, bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	entry, ok := v.s.ttsCache[cacheKey]
	return entry, ok, nil
}

// Store implements [store.TTSCache]. First writer wins.
func (v *ttsCacheStore) Store(ctx context.Context, entry domain.TTSCacheEntry) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, exists := v.s.ttsCache[entry.CacheKey]; exists {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	v.s.ttsCache[entry.CacheKey] = entry
	return nil
}

type avatarCacheStore struct {
	s *Store
}

// Lookup implements [store.AvatarCache].
func (v *avatarCacheStore) Lookup(ctx context.Context, cacheKey string) (domain.AvatarCacheEntry, bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	entry, ok := v.s.avatarCache[cacheKey]
	return entry, ok, nil
}

// Store implements [store.AvatarCache]. First writer wins.
func (v *avatarCacheStore) Store(ctx context.Context, entry domain.AvatarCacheEntry) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, exists := v.s.avatarCache[entry.CacheKey]; exists {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	v.s.avatarCache[entry.CacheKey] = entry
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Resumes and job roles
// ─────────────────────────────────────────────────────────────────────────────

type resumeStore struct {
	s *Store
}

// Create implements [store.Resumes].
func (v *resumeStore) Create(ctx context.Context, r *domain.Resume) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	r.ID = v.s.allocID()
	r.CreatedAt = time.Now()
	v.s.resumes[r.ID] = *r
	return nil
}

// GetForUser implements [store.Resumes].
func (v *resumeStore) GetForUser(ctx context.Context, id, userID int64) (domain.Resume, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	r, ok := v.s.resumes[id]
	if !ok || r.UserID != userID {
		return domain.Resume{}, &domain.NotFoundError{Entity: "resume"}
	}
	return r, nil
}

type jobRoleStore struct {
	s *Store
}

// Get implements [store.JobRoles].
func (v *jobRoleStore) Get(ctx context.Context, id int64) (domain.JobRole, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	jr, ok := v.s.jobRoles[id]
	if !ok {
		return domain.JobRole{}, &domain.NotFoundError{Entity: "job role"}
	}
	return jr, nil
}

// List implements [store.JobRoles].
func (v *jobRoleStore) List(ctx context.Context) ([]domain.JobRole, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	result := []domain.JobRole{}
	for _, jr := range v.s.jobRoles {
		result = append(result, jr)
	}
	slices.SortFunc(result, func(a, b domain.JobRole) int {
		if a.Title < b.Title {
			return -1
		}
		if a.Title > b.Title {
			return 1
		}
		return 0
	})
	return result, nil
}

// Create implements [store.JobRoles].
func (v *jobRoleStore) Create(ctx context.Context, jr *domain.JobRole) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	jr.ID = v.s.allocID()
	v.s.jobRoles[jr.ID] = *jr
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transactions
// ─────────────────────────────────────────────────────────────────────────────

// txKey marks a context as inside WithinTx so nested calls join instead of
// re-staging.
type txKey struct{}

// TxRunner implements [store.TxRunner] without transactional isolation:
// fn's writes land immediately and are not rolled back when fn fails. Event
// staging still behaves like the PostgreSQL runner, so after-commit dispatch
// stays testable: events published inside fn are held until fn succeeds and
// discarded when it errors.
type TxRunner struct {
	afterCommit func(ctx context.Context)
}

// WithinTx implements [store.TxRunner].
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	ctx = events.WithStaging(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, txKey{})); err != nil {
		return err
	}

	if r.afterCommit != nil {
		r.afterCommit(ctx)
	}
	return nil
}
