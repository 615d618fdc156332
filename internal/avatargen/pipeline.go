// Package avatargen runs the per-question avatar video pipeline: synthesize
// the question audio, render a talking-head video from it, store the result,
// and keep both stages behind content-addressed caches.
//
// The pipeline is driven by the QuestionsCreated event. For each question it
// either short-circuits on the avatar cache or walks the miss path (TTS →
// presigned audio URL → create_talk → poll → store). Questions fan out with
// bounded concurrency and fail independently: a question whose render dies
// simply keeps a null avatar key while the interview still becomes
// answerable.
package avatargen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/events"
	"github.com/voxhire/voxhire/internal/notify"
	"github.com/voxhire/voxhire/internal/resilience"
	"github.com/voxhire/voxhire/internal/store"
	"github.com/voxhire/voxhire/pkg/blob"
	"github.com/voxhire/voxhire/pkg/provider/avatar"
	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// Config tunes the pipeline. The zero value of every optional field selects
// the documented default.
type Config struct {
	// Voice is the profile every question is synthesized with. Part of both
	// cache fingerprints.
	Voice tts.VoiceProfile

	// PortraitURL is the face the avatar vendor animates. Part of the avatar
	// fingerprint.
	PortraitURL string

	// PadAudioSeconds and Fluent pass through to create_talk.
	PadAudioSeconds float64
	Fluent          bool

	// PollInterval and PollAttempts bound the render poll loop.
	// Defaults: 3s and 60, a 180s deadline.
	PollInterval time.Duration
	PollAttempts int

	// MaxConcurrent bounds the per-interview question fan-out. Default: 5.
	MaxConcurrent int64

	// AudioURLTTL is the validity of the presigned audio URL handed to the
	// avatar vendor; it must cover vendor-side queueing plus the fetch.
	// Default: 1h.
	AudioURLTTL time.Duration

	// CacheTTL sets the advisory expires_at written on avatar cache rows.
	// Default: 30 days.
	CacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 60
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.AudioURLTTL <= 0 {
		c.AudioURLTTL = time.Hour
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * 24 * time.Hour
	}
	return c
}

// Pipeline renders avatar videos for interview questions.
// It is safe for concurrent use; one Pipeline serves the whole process.
type Pipeline struct {
	cfg Config
	log *slog.Logger

	interviews  store.Interviews
	questions   store.Questions
	ttsCache    store.TTSCache
	avatarCache store.AvatarCache

	blobs    blob.Store
	synth    tts.Provider
	renderer avatar.Provider

	ttsExec    *resilience.Executor
	avatarExec *resilience.Executor

	hub  *notify.Hub
	http *http.Client

	sem *semaphore.Weighted
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithHTTPClient overrides the client used to download rendered videos from
// the vendor result URL.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.http = c }
}

// New constructs a Pipeline. st must carry Interviews, Questions, TTSCache,
// and AvatarCache implementations; ttsExec and avatarExec are the resilience
// executors for their targets, tuned at the composition root.
func New(
	st store.Store,
	blobs blob.Store,
	synth tts.Provider,
	renderer avatar.Provider,
	ttsExec, avatarExec *resilience.Executor,
	hub *notify.Hub,
	cfg Config,
	opts ...Option,
) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:         cfg,
		log:         slog.Default().With("component", "avatargen"),
		interviews:  st.Interviews,
		questions:   st.Questions,
		ttsCache:    st.TTSCache,
		avatarCache: st.AvatarCache,
		blobs:       blobs,
		synth:       synth,
		renderer:    renderer,
		ttsExec:     ttsExec,
		avatarExec:  avatarExec,
		hub:         hub,
		http:        &http.Client{Timeout: 2 * time.Minute},
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// HandleQuestionsCreated is the event-bus entry point. Subscribe it to
// [events.QuestionsCreated]; it runs on the worker pool.
func (p *Pipeline) HandleQuestionsCreated(ctx context.Context, evt events.Event) {
	qc, ok := evt.(events.QuestionsCreated)
	if !ok {
		p.log.Error("unexpected event payload", "event", evt.EventName())
		return
	}
	p.Run(ctx, qc.InterviewID)
}

// Run renders every question of the interview with bounded concurrency, then
// moves it GENERATING_VIDEOS → IN_PROGRESS and announces interview-ready.
// Per-question failures are absorbed: the question keeps a null avatar key
// and the interview still becomes answerable.
func (p *Pipeline) Run(ctx context.Context, interviewID int64) {
	log := p.log.With("interview_id", interviewID)

	iv, err := p.interviews.Get(ctx, interviewID)
	if err != nil {
		log.Error("interview lookup failed, avatar run aborted", "error", err)
		return
	}
	if iv.Status != domain.StatusGeneratingVideos {
		log.Warn("interview not awaiting videos, avatar run skipped", "status", string(iv.Status))
		return
	}

	qs, err := p.questions.ListByInterview(ctx, interviewID)
	if err != nil {
		log.Error("question listing failed, avatar run aborted", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, q := range qs {
		if q.AvatarObjectKey != nil {
			continue
		}
		wg.Add(1)
		go func(q domain.Question) {
			defer wg.Done()
			if err := p.sem.Acquire(ctx, 1); err != nil {
				log.Warn("fan-out cancelled before question started", "question_id", q.ID)
				p.hub.AvatarFailed(interviewID, q.ID)
				return
			}
			defer p.sem.Release(1)
			p.renderQuestion(ctx, q)
		}(q)
	}
	wg.Wait()

	err = p.interviews.TransitionStatus(ctx, interviewID,
		domain.StatusGeneratingVideos, domain.StatusInProgress)
	if err != nil {
		// The sweeper may have rescued the interview mid-run; its transition
		// already announced readiness.
		log.Warn("interview left GENERATING_VIDEOS during the run", "error", err)
		return
	}

	log.Info("avatar run complete, interview answerable", "questions", len(qs))
	p.hub.InterviewReady(interviewID)
}

// renderQuestion generates one avatar, records its key, and announces the
// outcome.
func (p *Pipeline) renderQuestion(ctx context.Context, q domain.Question) {
	log := p.log.With("interview_id", q.InterviewID, "question_id", q.ID)

	key, err := p.Generate(ctx, q)
	if err != nil {
		log.Error("avatar generation failed, question continues without video", "error", err)
		p.hub.AvatarFailed(q.InterviewID, q.ID)
		return
	}

	if err := p.questions.SetAvatarKey(ctx, q.ID, key); err != nil {
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			// A concurrent render won the key; its goroutine already
			// announced readiness.
			log.Info("avatar key already set, keeping the first", "lost_key", key)
			return
		}
		log.Error("avatar key write failed", "key", key, "error", err)
		p.hub.AvatarFailed(q.InterviewID, q.ID)
		return
	}

	url, err := p.blobs.PresignGet(ctx, key, 0)
	if err != nil {
		// The video is stored and recorded; only the push URL is missing.
		// Clients recover it from the interview DTO.
		log.Warn("presign for ready notification failed", "key", key, "error", err)
	}
	p.hub.AvatarReady(q.InterviewID, q.ID, url)
}

// Generate produces the avatar video for one question and returns its blob
// key, preferring the content-addressed cache key when available.
func (p *Pipeline) Generate(ctx context.Context, q domain.Question) (string, error) {
	fp := AvatarFingerprint(q.Text, p.cfg.Voice, p.cfg.PortraitURL)
	cacheKey := blob.AvatarCacheKey(fp)

	// The row lookup is an optimization; the blob HEAD decides. A stale row
	// pointing at a missing object falls through to regeneration.
	if entry, ok, err := p.avatarCache.Lookup(ctx, fp); err != nil {
		p.log.Warn("avatar cache row lookup failed", "error", err)
	} else if ok {
		cacheKey = entry.ObjectKey
	}

	exists, err := p.blobs.Head(ctx, cacheKey)
	if err != nil {
		p.log.Warn("avatar cache head failed, regenerating", "key", cacheKey, "error", err)
	} else if exists {
		return cacheKey, nil
	}

	audioURL, err := p.audioURL(ctx, q)
	if err != nil {
		return "", err
	}

	var talkID string
	err = p.avatarExec.Do(ctx, func(ctx context.Context) error {
		var createErr error
		talkID, createErr = p.renderer.CreateTalk(ctx, avatar.TalkRequest{
			AudioURL:        audioURL,
			PortraitURL:     p.cfg.PortraitURL,
			PadAudioSeconds: p.cfg.PadAudioSeconds,
			Fluent:          p.cfg.Fluent,
		})
		return createErr
	})
	if err != nil {
		return "", err
	}

	talk, err := p.awaitTalk(ctx, talkID)
	if err != nil {
		return "", err
	}

	video, err := p.download(ctx, talk.ResultURL)
	if err != nil {
		return "", err
	}

	freshKey := blob.AvatarVideoKey(q.ID)
	if err := p.blobs.PutObject(ctx, freshKey, video, "video/mp4"); err != nil {
		return "", err
	}

	if p.copyToCache(ctx, fp, cacheKey, video) {
		return cacheKey, nil
	}
	return freshKey, nil
}

// audioURL returns a presigned GET for the question's synthesized audio,
// synthesizing and storing it on a TTS cache miss.
func (p *Pipeline) audioURL(ctx context.Context, q domain.Question) (string, error) {
	fp := TTSFingerprint(q.Text, p.cfg.Voice)

	entry, ok, err := p.ttsCache.Lookup(ctx, fp)
	if err != nil {
		return "", err
	}

	audioKey := entry.ObjectKey
	if !ok {
		var audio []byte
		err := p.ttsExec.Do(ctx, func(ctx context.Context) error {
			var synthErr error
			audio, synthErr = p.synth.Synthesize(ctx, q.Text, p.cfg.Voice)
			return synthErr
		})
		if err != nil {
			return "", err
		}

		audioKey = blob.TTSAudioKey(q.ID)
		if err := p.blobs.PutObject(ctx, audioKey, audio, "audio/mpeg"); err != nil {
			return "", err
		}
		// The blob is in place, so a failed row write only costs a future
		// resynthesis.
		if err := p.ttsCache.Store(ctx, domain.TTSCacheEntry{CacheKey: fp, ObjectKey: audioKey}); err != nil {
			p.log.Warn("tts cache row write failed", "key", audioKey, "error", err)
		}
	}

	return p.blobs.PresignGet(ctx, audioKey, p.cfg.AudioURLTTL)
}

// awaitTalk polls the render job until done, error, or the poll deadline.
// Poll calls are deliberately not retried: still-processing is not a failure,
// and the loop's own deadline bounds the wait.
func (p *Pipeline) awaitTalk(ctx context.Context, talkID string) (avatar.Talk, error) {
	for attempt := 0; attempt < p.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return avatar.Talk{}, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}

		talk, err := p.renderer.PollTalk(ctx, talkID)
		if err != nil {
			return avatar.Talk{}, err
		}

		switch talk.Status {
		case avatar.TalkDone:
			return talk, nil
		case avatar.TalkError:
			return avatar.Talk{}, fmt.Errorf("avatar render rejected: %s", talk.Error)
		}
	}
	return avatar.Talk{}, &domain.TimeoutError{Stage: "avatar"}
}

// download fetches the rendered video from the vendor's result URL.
func (p *Pipeline) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch rendered video: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rendered video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rendered video: unexpected status %d", resp.StatusCode)
	}

	video, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch rendered video: %w", err)
	}
	if len(video) == 0 {
		return nil, fmt.Errorf("fetch rendered video: empty body")
	}
	return video, nil
}

// copyToCache lands video under the content-addressed cache key, guarded by
// a HEAD so a concurrent winner is kept. Every failure here is non-fatal;
// the caller falls back to the freshly stored key.
func (p *Pipeline) copyToCache(ctx context.Context, fp, cacheKey string, video []byte) bool {
	exists, err := p.blobs.Head(ctx, cacheKey)
	if err != nil {
		p.log.Warn("avatar cache head failed, cache copy skipped", "key", cacheKey, "error", err)
		return false
	}
	if !exists {
		if err := p.blobs.PutObject(ctx, cacheKey, video, "video/mp4"); err != nil {
			p.log.Warn("avatar cache copy failed", "key", cacheKey, "error", err)
			return false
		}
	}

	expires := time.Now().Add(p.cfg.CacheTTL)
	err = p.avatarCache.Store(ctx, domain.AvatarCacheEntry{
		CacheKey:  fp,
		ObjectKey: cacheKey,
		ExpiresAt: &expires,
	})
	if err != nil {
		// The blob copy landed; the key is canonical with or without a row.
		p.log.Warn("avatar cache row write failed", "key", cacheKey, "error", err)
	}
	return true
}
