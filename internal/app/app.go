// Package app wires all VoxHire subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled and then drains
// in-flight work within the shutdown grace window, and Shutdown releases
// external resources in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithBlobStore, WithQuestionGenerator, etc.). When an option is not
// provided, New builds the real implementation from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/voxhire/voxhire/internal/avatargen"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/events"
	"github.com/voxhire/voxhire/internal/health"
	"github.com/voxhire/voxhire/internal/httpapi"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/notify"
	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/internal/resilience"
	"github.com/voxhire/voxhire/internal/store"
	"github.com/voxhire/voxhire/internal/store/postgres"
	"github.com/voxhire/voxhire/internal/sweeper"
	"github.com/voxhire/voxhire/internal/worker"
	"github.com/voxhire/voxhire/pkg/blob"
	"github.com/voxhire/voxhire/pkg/blob/s3"
	"github.com/voxhire/voxhire/pkg/provider/avatar"
	"github.com/voxhire/voxhire/pkg/provider/avatar/did"
	"github.com/voxhire/voxhire/pkg/provider/feedbackgen"
	fgenopenai "github.com/voxhire/voxhire/pkg/provider/feedbackgen/openai"
	"github.com/voxhire/voxhire/pkg/provider/questiongen"
	qgenopenai "github.com/voxhire/voxhire/pkg/provider/questiongen/openai"
	"github.com/voxhire/voxhire/pkg/provider/stt"
	"github.com/voxhire/voxhire/pkg/provider/stt/assemblyai"
	"github.com/voxhire/voxhire/pkg/provider/tts"
	"github.com/voxhire/voxhire/pkg/provider/tts/elevenlabs"
)

// StoreBundler produces the repository bundle once the after-commit hook is
// known. Both *postgres.Store and the in-memory test store satisfy it; the
// indirection exists because the bundle cannot be assembled until the event
// bus — whose FlushStaged is that hook — has been constructed.
type StoreBundler interface {
	Bundle(afterCommit func(ctx context.Context)) store.Store
}

// App owns every subsystem of the interview service.
type App struct {
	cfg *config.Config
	log *slog.Logger

	metrics *observe.Metrics

	bundler StoreBundler
	pg      *postgres.Store
	st      store.Store
	blobs   blob.Store

	qgen     questiongen.Provider
	synth    tts.Provider
	renderer avatar.Provider
	speech   stt.Provider
	fgen     feedbackgen.Provider

	pool *worker.Pool
	bus  *events.Bus
	hub  *notify.Hub

	pipeline *avatargen.Pipeline
	svc      *interview.Service
	sweep    *sweeper.Sweeper
	server   *httpapi.Server

	checkers []health.Checker

	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithLogger sets the application logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithStore injects a repository bundler, skipping the PostgreSQL pool and
// migration.
func WithStore(b StoreBundler) Option {
	return func(a *App) { a.bundler = b }
}

// WithBlobStore injects an object store, skipping the S3 client.
func WithBlobStore(b blob.Store) Option {
	return func(a *App) { a.blobs = b }
}

// WithQuestionGenerator injects the question generation vendor.
func WithQuestionGenerator(p questiongen.Provider) Option {
	return func(a *App) { a.qgen = p }
}

// WithTTSProvider injects the speech synthesis vendor.
func WithTTSProvider(p tts.Provider) Option {
	return func(a *App) { a.synth = p }
}

// WithAvatarProvider injects the talking-head render vendor.
func WithAvatarProvider(p avatar.Provider) Option {
	return func(a *App) { a.renderer = p }
}

// WithSTTProvider injects the transcription vendor.
func WithSTTProvider(p stt.Provider) Option {
	return func(a *App) { a.speech = p }
}

// WithFeedbackGenerator injects the feedback generation vendor.
func WithFeedbackGenerator(p feedbackgen.Provider) Option {
	return func(a *App) { a.fgen = p }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any external dependency; everything not injected
// is built from cfg.
//
// New performs all initialisation synchronously: telemetry provider, database
// pool + migration, blob store client, worker pool + event bus, vendor
// adapters behind their resilience executors, the avatar pipeline, the
// interview service, the recovery sweeper, and the HTTP server. Nothing
// serves traffic until Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Telemetry ──────────────────────────────────────────────────────
	if err := a.initObserve(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}

	// ── 2. Store ──────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Blob store ─────────────────────────────────────────────────────
	if err := a.initBlobs(ctx); err != nil {
		return nil, fmt.Errorf("app: init blob store: %w", err)
	}

	// ── 4. Worker pool + event bus ────────────────────────────────────────
	a.pool = worker.New(worker.Config{Workers: cfg.Interview.EventWorkers})
	a.pool.Start()
	a.bus = events.NewBus(a.pool)
	a.st = a.bundler.Bundle(a.bus.FlushStaged)

	// ── 5. Vendor providers ───────────────────────────────────────────────
	if err := a.initVendors(); err != nil {
		return nil, fmt.Errorf("app: init vendors: %w", err)
	}

	// ── 6. Resilience executors ───────────────────────────────────────────
	qgenExec := a.buildExecutor(domain.TargetQuestionGen, cfg.Resilience.QuestionGen)
	ttsExec := a.buildExecutor(domain.TargetTTS, cfg.Resilience.TTS)
	avatarExec := a.buildExecutor(domain.TargetAvatar, cfg.Resilience.Avatar)
	sttExec := a.buildExecutor(domain.TargetSTT, cfg.Resilience.STT)
	fgenExec := a.buildExecutor(domain.TargetFeedbackGen, cfg.Resilience.FeedbackGen)

	// ── 7. Notifier hub ───────────────────────────────────────────────────
	a.hub = notify.NewHub()

	// ── 8. Avatar pipeline ────────────────────────────────────────────────
	a.pipeline = avatargen.New(
		a.st, a.blobs, a.synth, a.renderer,
		ttsExec, avatarExec,
		a.hub,
		avatargen.Config{
			Voice: tts.VoiceProfile{
				VoiceID:         cfg.Vendors.ElevenLabs.VoiceID,
				ModelID:         cfg.Vendors.ElevenLabs.ModelID,
				Stability:       cfg.Vendors.ElevenLabs.Stability,
				SimilarityBoost: cfg.Vendors.ElevenLabs.SimilarityBoost,
			},
			PortraitURL:     cfg.Vendors.DID.PortraitURL,
			PadAudioSeconds: cfg.Vendors.DID.PadAudioSeconds,
			Fluent:          cfg.Vendors.DID.FluentEnabled(),
			PollInterval:    cfg.Interview.AvatarPollInterval.Std(),
			PollAttempts:    cfg.Interview.AvatarPollAttempts,
			MaxConcurrent:   cfg.Interview.MaxConcurrentAvatars,
			AudioURLTTL:     cfg.BlobStore.PresignGetTTL.Std(),
		},
	)
	a.bus.Subscribe(events.QuestionsCreated{}.EventName(), a.pipeline.HandleQuestionsCreated)

	// ── 9. Interview service ──────────────────────────────────────────────
	a.svc = interview.New(
		a.st, a.blobs,
		a.qgen, a.speech, a.fgen,
		qgenExec, sttExec, fgenExec,
		a.bus, a.pool,
		interview.Config{
			QuestionCount:   cfg.Interview.QuestionCount,
			PresignGetTTL:   cfg.BlobStore.PresignGetTTL.Std(),
			PresignPutTTL:   cfg.BlobStore.PresignPutTTL.Std(),
			STTLanguageCode: cfg.Vendors.AssemblyAI.LanguageCode,
			STTPollInterval: cfg.Interview.STTPollInterval.Std(),
			STTPollAttempts: cfg.Interview.STTPollAttempts,
		},
		interview.WithMetrics(a.metrics),
	)

	// ── 10. Recovery sweeper ──────────────────────────────────────────────
	a.sweep = sweeper.New(a.st, a.hub, sweeper.Config{
		Interval:          cfg.Sweeper.Interval.Std(),
		InitialDelay:      cfg.Sweeper.InitialDelay.Std(),
		VideoTimeout:      cfg.Sweeper.VideoTimeout.Std(),
		ProcessingTimeout: cfg.Sweeper.ProcessingTimeout.Std(),
	}, sweeper.WithMetrics(a.metrics))

	// ── 11. HTTP server ───────────────────────────────────────────────────
	a.server = httpapi.New(a.svc, a.hub, health.New(a.checkers...), httpapi.Config{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		MetricsEnabled: cfg.Metrics.MetricsEnabled(),
	}, httpapi.WithMetrics(a.metrics))

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initObserve sets up the OTel pipeline and the shared instrument bundle. The
// instruments are created even when metrics are disabled; without a registered
// provider they record into the global no-op meter.
func (a *App) initObserve(ctx context.Context) error {
	if a.cfg.Metrics.MetricsEnabled() {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(flushCtx)
		})
	}

	m, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// initStore connects the PostgreSQL pool (which pings and migrates) and
// registers the readiness probe, unless a bundler was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.bundler != nil {
		return nil
	}

	pg, err := postgres.NewStore(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}

	a.pg = pg
	a.bundler = pg
	a.closers = append(a.closers, func() error {
		pg.Close()
		return nil
	})
	a.checkers = append(a.checkers, health.Checker{
		Name:  "database",
		Check: func(ctx context.Context) error { return pg.Pool().Ping(ctx) },
	})
	return nil
}

// initBlobs builds the S3 client unless an object store was injected.
func (a *App) initBlobs(ctx context.Context) error {
	if a.blobs != nil {
		return nil
	}

	bs, err := s3.New(ctx, s3.Config{
		Region:          a.cfg.BlobStore.Region,
		Bucket:          a.cfg.BlobStore.Bucket,
		Endpoint:        a.cfg.BlobStore.Endpoint,
		AccessKeyID:     a.cfg.BlobStore.AccessKeyID,
		SecretAccessKey: a.cfg.BlobStore.SecretAccessKey,
	})
	if err != nil {
		return err
	}
	a.blobs = bs
	return nil
}

// initVendors builds the real vendor adapters for every slot that was not
// injected.
func (a *App) initVendors() error {
	if a.qgen == nil {
		oc := a.cfg.Vendors.OpenAI
		var opts []qgenopenai.Option
		if oc.BaseURL != "" {
			opts = append(opts, qgenopenai.WithBaseURL(oc.BaseURL))
		}
		p, err := qgenopenai.New(oc.APIKey, oc.Model, opts...)
		if err != nil {
			return fmt.Errorf("question generator: %w", err)
		}
		a.qgen = p
	}

	if a.fgen == nil {
		oc := a.cfg.Vendors.OpenAI
		var opts []fgenopenai.Option
		if oc.BaseURL != "" {
			opts = append(opts, fgenopenai.WithBaseURL(oc.BaseURL))
		}
		p, err := fgenopenai.New(oc.APIKey, oc.Model, opts...)
		if err != nil {
			return fmt.Errorf("feedback generator: %w", err)
		}
		a.fgen = p
	}

	if a.synth == nil {
		ec := a.cfg.Vendors.ElevenLabs
		var opts []elevenlabs.Option
		if ec.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(ec.BaseURL))
		}
		p, err := elevenlabs.New(ec.APIKey, opts...)
		if err != nil {
			return fmt.Errorf("tts: %w", err)
		}
		a.synth = p
	}

	if a.renderer == nil {
		dc := a.cfg.Vendors.DID
		var opts []did.Option
		if dc.BaseURL != "" {
			opts = append(opts, did.WithBaseURL(dc.BaseURL))
		}
		p, err := did.New(dc.APIKey, opts...)
		if err != nil {
			return fmt.Errorf("avatar: %w", err)
		}
		a.renderer = p
	}

	if a.speech == nil {
		ac := a.cfg.Vendors.AssemblyAI
		var opts []assemblyai.Option
		if ac.BaseURL != "" {
			opts = append(opts, assemblyai.WithBaseURL(ac.BaseURL))
		}
		p, err := assemblyai.New(ac.APIKey, opts...)
		if err != nil {
			return fmt.Errorf("stt: %w", err)
		}
		a.speech = p
	}

	return nil
}

// buildExecutor assembles one vendor's retry + breaker stack from its config
// block and routes call outcomes into the vendor metrics.
func (a *App) buildExecutor(target string, rc config.TargetResilience) *resilience.Executor {
	return resilience.NewExecutor(resilience.ExecutorConfig{
		Target: target,
		Retry: resilience.RetryPolicy{
			MaxAttempts:    rc.MaxAttempts,
			InitialBackoff: rc.InitialBackoff.Std(),
		},
		Breaker: resilience.BreakerConfig{
			Window:         rc.Window,
			FailureRatio:   rc.FailureRatio,
			OpenFor:        rc.OpenFor.Std(),
			HalfOpenProbes: rc.HalfOpenProbes,
		},
		MaxInFlight: rc.MaxInFlight,
		OnOutcome:   a.metrics.RecordVendorCall,
	})
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the sweeper and the HTTP server and blocks until ctx is
// cancelled or the server fails. It then drains within the shutdown grace
// window: the server stops accepting and ends open progress streams, the
// sweeper halts, and the worker pool finishes queued pipeline and feedback
// jobs. Returns ctx.Err on a clean signal-driven exit.
func (a *App) Run(ctx context.Context) error {
	a.sweep.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	a.log.Info("app running", "port", a.cfg.Server.Port)

	var runErr error
	select {
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("app: http server: %w", err)
		}
	case <-ctx.Done():
		runErr = ctx.Err()
	}

	grace := a.cfg.Server.ShutdownGrace.Std()
	if grace <= 0 {
		grace = 15 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := a.server.Shutdown(drainCtx); err != nil {
		a.log.Warn("http server shutdown", "err", err)
	}
	a.sweep.Stop()
	if err := a.pool.Shutdown(drainCtx); err != nil {
		a.log.Warn("worker pool drain", "err", err)
	}

	return runErr
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases external resources (telemetry pipeline, database pool) in
// the order they were acquired. Call it after Run returns; safe to call more
// than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
