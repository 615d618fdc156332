// Package sweeper rescues interviews stuck in a transient status. The avatar
// fan-out and the feedback pipeline both run as in-process jobs, so a crash
// or deploy can strand an interview in GENERATING_VIDEOS or PROCESSING
// forever; the sweeper is the recovery path that keeps those states bounded.
//
// Two rules apply, both driven by configurable deadlines:
//
//   - GENERATING_VIDEOS past its deadline is forced to IN_PROGRESS. Questions
//     that never got an avatar stay text-only; the candidate can still answer.
//   - PROCESSING past its deadline is marked FAILED. Feedback that never
//     landed is not retried.
//
// Every transition is a compare-and-set, so a sweep racing the pipeline it is
// rescuing loses cleanly and the next query returns no rows.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/notify"
	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/internal/store"
)

// Rescue rules, as reported to logs and metrics.
const (
	RuleVideoTimeout      = "video_timeout"
	RuleProcessingTimeout = "processing_timeout"
)

// Config tunes the sweeper. The zero value of every field selects the
// documented default.
type Config struct {
	// Interval is the fixed delay between the end of one pass and the start
	// of the next. Default: 5m.
	Interval time.Duration

	// InitialDelay postpones the first pass after Start, giving in-flight
	// pipelines from before a restart a head start. Default: 60s.
	InitialDelay time.Duration

	// VideoTimeout is how long an interview may sit in GENERATING_VIDEOS
	// before it is forced answerable. Default: 15m.
	VideoTimeout time.Duration

	// ProcessingTimeout is how long an interview may sit in PROCESSING,
	// measured from completed_at when set and created_at otherwise, before
	// it is failed. Default: 30m.
	ProcessingTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Minute
	}
	if c.VideoTimeout <= 0 {
		c.VideoTimeout = 15 * time.Minute
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = 30 * time.Minute
	}
	return c
}

// Sweeper periodically unsticks stuck interviews.
// All methods are safe for concurrent use.
type Sweeper struct {
	cfg Config
	log *slog.Logger

	interviews store.Interviews
	questions  store.Questions
	hub        *notify.Hub
	metrics    *observe.Metrics

	// mu keeps passes single-flight even when RunOnce races the loop.
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// Option is a functional option for configuring the Sweeper.
type Option func(*Sweeper)

// WithLogger sets the sweeper logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sweeper) { s.log = log }
}

// WithMetrics attaches the rescue counters.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// New constructs a Sweeper over the interview and question stores. hub
// receives interview-ready for every video-timeout rescue, exactly as if the
// avatar pipeline had finished.
func New(st store.Store, hub *notify.Hub, cfg Config, opts ...Option) *Sweeper {
	s := &Sweeper{
		cfg:        cfg.withDefaults(),
		log:        slog.Default().With("component", "sweeper"),
		interviews: st.Interviews,
		questions:  st.Questions,
		hub:        hub,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins sweeping in a background goroutine after the initial delay.
// The goroutine runs until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop halts the sweep loop. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// loop drives passes with a fixed delay: the timer is rearmed only after a
// pass completes, so a slow pass postpones the next one instead of stacking.
func (s *Sweeper) loop(ctx context.Context) {
	timer := time.NewTimer(s.cfg.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-timer.C:
		}

		s.RunOnce(ctx)
		timer.Reset(s.cfg.Interval)
	}
}

// RunOnce performs one full sweep immediately. The periodic loop calls it on
// every tick; tests and operators may call it directly.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rescueGeneratingVideos(ctx)
	s.failStuckProcessing(ctx)
}

// rescueGeneratingVideos forces overdue GENERATING_VIDEOS interviews to
// IN_PROGRESS and announces readiness, standing in for the avatar pipeline
// that never finished.
func (s *Sweeper) rescueGeneratingVideos(ctx context.Context) {
	stuck, err := s.interviews.ListStuck(ctx, domain.StatusGeneratingVideos, s.cfg.VideoTimeout)
	if err != nil {
		s.log.Error("stuck video query failed", "error", err)
		return
	}

	for _, iv := range stuck {
		done, total := s.avatarProgress(ctx, iv.ID)
		s.log.Warn("interview stuck generating videos, forcing it answerable",
			"interview_id", iv.ID,
			"user_id", iv.UserID,
			"elapsed", time.Since(iv.CreatedAt).Round(time.Second),
			"avatars_done", done,
			"questions", total,
		)

		err := s.interviews.TransitionStatus(ctx, iv.ID,
			domain.StatusGeneratingVideos, domain.StatusInProgress)
		if err != nil {
			// The pipeline finished between the query and the swap; its own
			// transition already announced readiness.
			s.log.Info("interview left GENERATING_VIDEOS before rescue",
				"interview_id", iv.ID, "error", err)
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordSweeperRescue(ctx, RuleVideoTimeout)
		}
		s.hub.InterviewReady(iv.ID)
	}
}

// failStuckProcessing marks overdue PROCESSING interviews FAILED. The
// feedback pipeline persists nothing on terminal failure, so this is the
// transition that finally surfaces it to the candidate.
func (s *Sweeper) failStuckProcessing(ctx context.Context) {
	stuck, err := s.interviews.ListStuck(ctx, domain.StatusProcessing, s.cfg.ProcessingTimeout)
	if err != nil {
		s.log.Error("stuck processing query failed", "error", err)
		return
	}

	for _, iv := range stuck {
		since := iv.CreatedAt
		if iv.CompletedAt != nil {
			since = *iv.CompletedAt
		}

		err := s.interviews.TransitionStatus(ctx, iv.ID,
			domain.StatusProcessing, domain.StatusFailed)
		if err != nil {
			s.log.Info("interview left PROCESSING before rescue",
				"interview_id", iv.ID, "error", err)
			continue
		}

		s.log.Warn("interview stuck in processing, marked failed",
			"interview_id", iv.ID,
			"user_id", iv.UserID,
			"elapsed", time.Since(since).Round(time.Second),
		)
		if s.metrics != nil {
			s.metrics.RecordSweeperRescue(ctx, RuleProcessingTimeout)
			s.metrics.RecordInterviewFinished(ctx, string(domain.StatusFailed))
		}
	}
}

// avatarProgress counts how many of the interview's questions already carry
// an avatar key. Diagnostic only; a failed count degrades to zeros.
func (s *Sweeper) avatarProgress(ctx context.Context, interviewID int64) (done, total int) {
	qs, err := s.questions.ListByInterview(ctx, interviewID)
	if err != nil {
		s.log.Warn("question listing failed during rescue", "interview_id", interviewID, "error", err)
		return 0, 0
	}
	for _, q := range qs {
		if q.AvatarObjectKey != nil {
			done++
		}
	}
	return done, len(qs)
}
