package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// for secrets, fills defaults, and validates the result. Useful in tests
// where configs are constructed from string literals.
//
// Secrets may be supplied (or overridden) via environment variables instead
// of the file: VOXHIRE_JWT_SECRET, VOXHIRE_DATABASE_DSN,
// VOXHIRE_BLOB_ACCESS_KEY_ID, VOXHIRE_BLOB_SECRET_ACCESS_KEY,
// VOXHIRE_OPENAI_API_KEY, VOXHIRE_ELEVENLABS_API_KEY, VOXHIRE_DID_API_KEY
// and VOXHIRE_ASSEMBLYAI_API_KEY.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.applyEnvOverrides()
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides replaces secret fields with their environment variable
// counterparts when set. File values lose to the environment so deployments
// can keep credentials out of the config file entirely.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"VOXHIRE_JWT_SECRET", &c.Auth.JWTSecret},
		{"VOXHIRE_DATABASE_DSN", &c.Database.DSN},
		{"VOXHIRE_BLOB_ACCESS_KEY_ID", &c.BlobStore.AccessKeyID},
		{"VOXHIRE_BLOB_SECRET_ACCESS_KEY", &c.BlobStore.SecretAccessKey},
		{"VOXHIRE_OPENAI_API_KEY", &c.Vendors.OpenAI.APIKey},
		{"VOXHIRE_ELEVENLABS_API_KEY", &c.Vendors.ElevenLabs.APIKey},
		{"VOXHIRE_DID_API_KEY", &c.Vendors.DID.APIKey},
		{"VOXHIRE_ASSEMBLYAI_API_KEY", &c.Vendors.AssemblyAI.APIKey},
	}
	for _, ov := range overrides {
		if v, ok := os.LookupEnv(ov.env); ok && v != "" {
			*ov.dst = v
		}
	}
}

// ApplyDefaults fills every unset tunable with its documented default and
// logs the applied defaults once at Info. Secrets and vendor bindings never
// get defaults; missing ones surface in [Validate].
func (c *Config) ApplyDefaults() {
	var applied []string

	setInt := func(field string, dst *int, def int) {
		if *dst == 0 {
			*dst = def
			applied = append(applied, fmt.Sprintf("%s=%d", field, def))
		}
	}
	setInt64 := func(field string, dst *int64, def int64) {
		if *dst == 0 {
			*dst = def
			applied = append(applied, fmt.Sprintf("%s=%d", field, def))
		}
	}
	setFloat := func(field string, dst *float64, def float64) {
		if *dst == 0 {
			*dst = def
			applied = append(applied, fmt.Sprintf("%s=%g", field, def))
		}
	}
	setDur := func(field string, dst *Duration, def time.Duration) {
		if *dst == 0 {
			*dst = Duration(def)
			applied = append(applied, fmt.Sprintf("%s=%s", field, def))
		}
	}
	setStr := func(field string, dst *string, def string) {
		if *dst == "" {
			*dst = def
			applied = append(applied, fmt.Sprintf("%s=%s", field, def))
		}
	}

	setInt("server.port", &c.Server.Port, 8080)
	setDur("server.shutdown_grace", &c.Server.ShutdownGrace, 15*time.Second)
	if c.Log.Level == "" {
		c.Log.Level = LogInfo
		applied = append(applied, "log.level=info")
	}

	setDur("blobstore.presign_get_ttl", &c.BlobStore.PresignGetTTL, time.Hour)
	setDur("blobstore.presign_put_ttl", &c.BlobStore.PresignPutTTL, 15*time.Minute)

	setStr("vendors.openai.model", &c.Vendors.OpenAI.Model, "gpt-4o-mini")
	setStr("vendors.elevenlabs.model_id", &c.Vendors.ElevenLabs.ModelID, "eleven_multilingual_v2")
	setFloat("vendors.elevenlabs.stability", &c.Vendors.ElevenLabs.Stability, 0.5)
	setFloat("vendors.elevenlabs.similarity_boost", &c.Vendors.ElevenLabs.SimilarityBoost, 0.75)
	setStr("vendors.assemblyai.language_code", &c.Vendors.AssemblyAI.LanguageCode, "en")

	setInt("interview.question_count", &c.Interview.QuestionCount, 10)
	setInt64("interview.max_concurrent_avatars", &c.Interview.MaxConcurrentAvatars, 5)
	setDur("interview.avatar_poll_interval", &c.Interview.AvatarPollInterval, 3*time.Second)
	setInt("interview.avatar_poll_attempts", &c.Interview.AvatarPollAttempts, 60)
	setDur("interview.stt_poll_interval", &c.Interview.STTPollInterval, 3*time.Second)
	setInt("interview.stt_poll_attempts", &c.Interview.STTPollAttempts, 60)
	setInt("interview.event_workers", &c.Interview.EventWorkers, 16)

	// Generation vendors trip at half the window failing; media vendors are
	// flakier and slower to recover, so they trip earlier and stay open longer.
	defaultTarget := func(field string, t *TargetResilience, ratio float64, openFor time.Duration) {
		setInt(field+".max_attempts", &t.MaxAttempts, 3)
		setDur(field+".initial_backoff", &t.InitialBackoff, time.Second)
		setInt(field+".window", &t.Window, 10)
		setFloat(field+".failure_ratio", &t.FailureRatio, ratio)
		setDur(field+".open_for", &t.OpenFor, openFor)
		setInt(field+".half_open_probes", &t.HalfOpenProbes, 3)
		setInt64(field+".max_in_flight", &t.MaxInFlight, 5)
	}
	defaultTarget("resilience.question_gen", &c.Resilience.QuestionGen, 0.5, 30*time.Second)
	defaultTarget("resilience.tts", &c.Resilience.TTS, 0.3, time.Minute)
	defaultTarget("resilience.avatar", &c.Resilience.Avatar, 0.3, time.Minute)
	defaultTarget("resilience.stt", &c.Resilience.STT, 0.3, time.Minute)
	defaultTarget("resilience.feedback_gen", &c.Resilience.FeedbackGen, 0.5, 30*time.Second)

	setDur("sweeper.interval", &c.Sweeper.Interval, 5*time.Minute)
	setDur("sweeper.initial_delay", &c.Sweeper.InitialDelay, time.Minute)
	setDur("sweeper.video_timeout", &c.Sweeper.VideoTimeout, 15*time.Minute)
	setDur("sweeper.processing_timeout", &c.Sweeper.ProcessingTimeout, 30*time.Minute)

	if len(applied) > 0 {
		slog.Info("config: applied defaults", "fields", applied)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port))
	}
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	if cfg.BlobStore.Region == "" {
		errs = append(errs, errors.New("blobstore.region is required"))
	}
	if cfg.BlobStore.Bucket == "" {
		errs = append(errs, errors.New("blobstore.bucket is required"))
	}
	if (cfg.BlobStore.AccessKeyID == "") != (cfg.BlobStore.SecretAccessKey == "") {
		slog.Warn("only one of blobstore.access_key_id and blobstore.secret_access_key is set; falling back to the ambient credential chain")
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or set VOXHIRE_JWT_SECRET)"))
	}

	if cfg.Vendors.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("vendors.openai.api_key is required (or set VOXHIRE_OPENAI_API_KEY)"))
	}
	if cfg.Vendors.ElevenLabs.APIKey == "" {
		errs = append(errs, errors.New("vendors.elevenlabs.api_key is required (or set VOXHIRE_ELEVENLABS_API_KEY)"))
	}
	if cfg.Vendors.ElevenLabs.VoiceID == "" {
		errs = append(errs, errors.New("vendors.elevenlabs.voice_id is required"))
	}
	if s := cfg.Vendors.ElevenLabs.Stability; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("vendors.elevenlabs.stability %.2f is out of range [0, 1]", s))
	}
	if s := cfg.Vendors.ElevenLabs.SimilarityBoost; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("vendors.elevenlabs.similarity_boost %.2f is out of range [0, 1]", s))
	}
	if cfg.Vendors.DID.APIKey == "" {
		errs = append(errs, errors.New("vendors.did.api_key is required (or set VOXHIRE_DID_API_KEY)"))
	}
	if cfg.Vendors.DID.PortraitURL == "" {
		errs = append(errs, errors.New("vendors.did.portrait_url is required"))
	}
	if cfg.Vendors.DID.PadAudioSeconds < 0 {
		errs = append(errs, fmt.Errorf("vendors.did.pad_audio_seconds %.2f must not be negative", cfg.Vendors.DID.PadAudioSeconds))
	}
	if cfg.Vendors.AssemblyAI.APIKey == "" {
		errs = append(errs, errors.New("vendors.assemblyai.api_key is required (or set VOXHIRE_ASSEMBLYAI_API_KEY)"))
	}

	if cfg.Interview.QuestionCount < 1 {
		errs = append(errs, fmt.Errorf("interview.question_count %d must be at least 1", cfg.Interview.QuestionCount))
	}
	if cfg.Interview.MaxConcurrentAvatars < 1 {
		errs = append(errs, fmt.Errorf("interview.max_concurrent_avatars %d must be at least 1", cfg.Interview.MaxConcurrentAvatars))
	}
	if cfg.Interview.AvatarPollAttempts < 1 {
		errs = append(errs, fmt.Errorf("interview.avatar_poll_attempts %d must be at least 1", cfg.Interview.AvatarPollAttempts))
	}
	if cfg.Interview.STTPollAttempts < 1 {
		errs = append(errs, fmt.Errorf("interview.stt_poll_attempts %d must be at least 1", cfg.Interview.STTPollAttempts))
	}
	if cfg.Interview.EventWorkers < 1 {
		errs = append(errs, fmt.Errorf("interview.event_workers %d must be at least 1", cfg.Interview.EventWorkers))
	}

	validateTarget := func(field string, t TargetResilience) {
		if t.MaxAttempts < 1 {
			errs = append(errs, fmt.Errorf("%s.max_attempts %d must be at least 1", field, t.MaxAttempts))
		}
		if t.Window < 1 {
			errs = append(errs, fmt.Errorf("%s.window %d must be at least 1", field, t.Window))
		}
		if t.FailureRatio <= 0 || t.FailureRatio > 1 {
			errs = append(errs, fmt.Errorf("%s.failure_ratio %.2f is out of range (0, 1]", field, t.FailureRatio))
		}
		if t.HalfOpenProbes < 1 {
			errs = append(errs, fmt.Errorf("%s.half_open_probes %d must be at least 1", field, t.HalfOpenProbes))
		}
		if t.MaxInFlight < 1 {
			errs = append(errs, fmt.Errorf("%s.max_in_flight %d must be at least 1", field, t.MaxInFlight))
		}
	}
	validateTarget("resilience.question_gen", cfg.Resilience.QuestionGen)
	validateTarget("resilience.tts", cfg.Resilience.TTS)
	validateTarget("resilience.avatar", cfg.Resilience.Avatar)
	validateTarget("resilience.stt", cfg.Resilience.STT)
	validateTarget("resilience.feedback_gen", cfg.Resilience.FeedbackGen)

	if cfg.Sweeper.VideoTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sweeper.video_timeout %s must be positive", cfg.Sweeper.VideoTimeout.Std()))
	}
	if cfg.Sweeper.ProcessingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sweeper.processing_timeout %s must be positive", cfg.Sweeper.ProcessingTimeout.Std()))
	}

	return errors.Join(errs...)
}
