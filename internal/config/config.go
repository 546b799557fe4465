package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// IngestSettings bounds and segments lecture audio.
type IngestSettings struct {
	MaxDurationSeconds float64 `toml:"max_duration_seconds" json:"max_duration_seconds"`
	MaxSegmentSeconds  float64 `toml:"max_segment_seconds" json:"max_segment_seconds"`
	MinSegmentMs       int     `toml:"min_segment_ms" json:"min_segment_ms"`
	SilenceGapMs       int     `toml:"silence_gap_ms" json:"silence_gap_ms"`
	SilenceThreshold   float64 `toml:"silence_threshold" json:"silence_threshold"`
}

// LanguageSettings configures language detection and backend routing.
type LanguageSettings struct {
	Hint                string   `toml:"hint" json:"hint"`
	Probe               bool     `toml:"probe" json:"probe"`
	ConfidenceThreshold float64  `toml:"confidence_threshold" json:"confidence_threshold"`
	MixedMargin         float64  `toml:"mixed_margin" json:"mixed_margin"`
	MixedFloor          float64  `toml:"mixed_floor" json:"mixed_floor"`
	Default             string   `toml:"default" json:"default"`
	FallbackOrder       []string `toml:"fallback_order" json:"fallback_order"`
}

// TranscriptionSettings controls per-segment recognition. Fields tagged
// json:"-" affect scheduling only and are left out of cache fingerprints.
type TranscriptionSettings struct {
	ConcurrencyLimit        int `toml:"concurrency_limit" json:"-"`
	RetryLimit              int `toml:"retry_limit" json:"retry_limit"`
	RetryBackoffMs          int `toml:"retry_backoff_ms" json:"-"`
	SegmentTimeoutMs        int `toml:"segment_timeout_ms" json:"-"`
	RateLimitPerMin         int `toml:"rate_limit_per_min" json:"-"`
	MaxBoundaryOverlapWords int `toml:"max_boundary_overlap_words" json:"max_boundary_overlap_words"`
}

// RetryBackoff returns the base backoff between attempts.
func (s TranscriptionSettings) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMs) * time.Millisecond
}

// SegmentTimeout returns the time budget for one segment.
func (s TranscriptionSettings) SegmentTimeout() time.Duration {
	return time.Duration(s.SegmentTimeoutMs) * time.Millisecond
}

// KeypointSettings holds the salience weights and selection constraints.
type KeypointSettings struct {
	MaxKeypoints     int     `toml:"max_keypoints" json:"max_keypoints"`
	MaxSpanSentences int     `toml:"max_span_sentences" json:"max_span_sentences"`
	MinSentenceWords int     `toml:"min_sentence_words" json:"min_sentence_words"`
	OverlapThreshold float64 `toml:"overlap_threshold" json:"overlap_threshold"`
	MinDistance      float64 `toml:"min_distance" json:"min_distance"`
	TermWeight       float64 `toml:"term_weight" json:"term_weight"`
	PositionWeight   float64 `toml:"position_weight" json:"position_weight"`
	CueWeight        float64 `toml:"cue_weight" json:"cue_weight"`
}

// SummarySettings selects the summary strategy and length bound.
type SummarySettings struct {
	LengthBound string `toml:"length_bound" json:"length_bound"`
	Strategy    string `toml:"strategy" json:"strategy"`
}

// Bound parses LengthBound.
func (s SummarySettings) Bound() (model.LengthBound, error) {
	return model.ParseLengthBound(s.LengthBound)
}

// QuizSettings controls quiz generation.
type QuizSettings struct {
	QuizSize        int    `toml:"quiz_size" json:"quiz_size"`
	MinQuizSize     int    `toml:"min_quiz_size" json:"min_quiz_size"`
	DistractorCount int    `toml:"distractor_count" json:"distractor_count"`
	Seed            uint64 `toml:"seed" json:"seed"`
	Rephrase        bool   `toml:"rephrase" json:"rephrase"`
}

// BackendSettings selects and configures the inference services.
type BackendSettings struct {
	Bangla           string `toml:"bangla" json:"bangla"`
	English          string `toml:"english" json:"english"`
	Probe            string `toml:"probe" json:"probe"`
	Generator        string `toml:"generator" json:"generator"`
	ElevenLabsAPIKey string `toml:"elevenlabs_api_key" json:"-"`
	ElevenLabsURL    string `toml:"elevenlabs_url" json:"-"`
	ElevenLabsModel  string `toml:"elevenlabs_model" json:"elevenlabs_model"`
	WhisperCommand   string `toml:"whisper_command" json:"whisper_command"`
	WhisperModel     string `toml:"whisper_model" json:"whisper_model"`
	AnthropicAPIKey  string `toml:"anthropic_api_key" json:"-"`
	AnthropicURL     string `toml:"anthropic_url" json:"-"`
	AnthropicModel   string `toml:"anthropic_model" json:"anthropic_model"`
}

// CacheSettings selects where stage outputs are cached.
type CacheSettings struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
	TTLHours    int    `toml:"ttl_hours"`
}

// Config holds the full application configuration.
type Config struct {
	Ingest        IngestSettings        `toml:"ingest"`
	Language      LanguageSettings      `toml:"language"`
	Transcription TranscriptionSettings `toml:"transcription"`
	Keypoints     KeypointSettings      `toml:"keypoints"`
	Summary       SummarySettings       `toml:"summary"`
	Quiz          QuizSettings          `toml:"quiz"`
	Backends      BackendSettings       `toml:"backends"`
	Cache         CacheSettings         `toml:"cache"`

	// StageFallback keeps a run PartiallyCompleted instead of Failed when a
	// text stage produces nothing.
	StageFallback bool   `toml:"stage_fallback"`
	OutputDir     string `toml:"output_dir"`
	LogFile       string `toml:"log_file"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Ingest: IngestSettings{
			MaxDurationSeconds: 4 * 60 * 60,
			MaxSegmentSeconds:  30,
			MinSegmentMs:       2000,
			SilenceGapMs:       700,
			SilenceThreshold:   0.01,
		},
		Language: LanguageSettings{
			Hint:                "auto",
			Probe:               true,
			ConfidenceThreshold: 0.6,
			MixedMargin:         0.2,
			MixedFloor:          0.25,
			Default:             "bn",
			FallbackOrder:       []string{"bn", "en"},
		},
		Transcription: TranscriptionSettings{
			ConcurrencyLimit:        3,
			RetryLimit:              3,
			RetryBackoffMs:          1000,
			SegmentTimeoutMs:        120000,
			RateLimitPerMin:         60,
			MaxBoundaryOverlapWords: 6,
		},
		Keypoints: KeypointSettings{
			MaxKeypoints:     10,
			MaxSpanSentences: 2,
			MinSentenceWords: 4,
			OverlapThreshold: 0.2,
			MinDistance:      0.3,
			TermWeight:       0.6,
			PositionWeight:   0.15,
			CueWeight:        0.25,
		},
		Summary: SummarySettings{
			LengthBound: "800c",
			Strategy:    "extractive",
		},
		Quiz: QuizSettings{
			QuizSize:        5,
			MinQuizSize:     1,
			DistractorCount: 3,
			Seed:            42,
		},
		Backends: BackendSettings{
			Bangla:          "elevenlabs",
			English:         "elevenlabs",
			ElevenLabsURL:   "https://api.elevenlabs.io/v1/speech-to-text",
			ElevenLabsModel: "scribe_v1",
			WhisperCommand:  "whisper",
			WhisperModel:    "small",
			AnthropicURL:    "https://api.anthropic.com/v1/messages",
			AnthropicModel:  "claude-haiku-4-5",
		},
		Cache: CacheSettings{
			Backend:     "sqlite",
			Path:        filepath.Join(".notewhisper", "notewhisper.db"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "notewhisper:",
			TTLHours:    24 * 7,
		},
		OutputDir: "notes",
	}
}

// Load returns defaults overlaid with the TOML file at path (or the
// default config location when path is empty) and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = defaultConfigPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOTEWHISPER_ELEVENLABS_API_KEY"); v != "" {
		cfg.Backends.ElevenLabsAPIKey = v
	}
	if v := os.Getenv("NOTEWHISPER_ANTHROPIC_API_KEY"); v != "" {
		cfg.Backends.AnthropicAPIKey = v
	}
	if v := os.Getenv("NOTEWHISPER_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("NOTEWHISPER_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("NOTEWHISPER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

func defaultConfigPath() string {
	var dir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dir = filepath.Join(xdg, "notewhisper")
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", "notewhisper")
	} else {
		return ""
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Ingest.MaxDurationSeconds > 0, "max_duration_seconds must be positive")
	check(c.Ingest.MaxSegmentSeconds > 0, "max_segment_seconds must be positive")
	check(c.Ingest.SilenceGapMs > 0, "silence_gap_ms must be positive")
	check(c.Ingest.MinSegmentMs >= 0, "min_segment_ms must not be negative")
	check(float64(c.Ingest.MinSegmentMs) < c.Ingest.MaxSegmentSeconds*1000,
		"min_segment_ms must be below max_segment_seconds")

	check(c.Language.ConfidenceThreshold >= 0 && c.Language.ConfidenceThreshold <= 1,
		"confidence_threshold must be in [0,1]")
	check(c.Language.MixedMargin >= 0 && c.Language.MixedMargin <= 1, "mixed_margin must be in [0,1]")
	if _, err := model.ParseLanguage(c.Language.Hint); err != nil {
		errs = append(errs, fmt.Errorf("language hint: %w", err))
	}
	if _, err := c.Language.Fallback(); err != nil {
		errs = append(errs, err)
	}

	check(c.Transcription.ConcurrencyLimit > 0, "concurrency_limit must be positive")
	check(c.Transcription.RetryLimit >= 0, "retry_limit must not be negative")
	check(c.Transcription.SegmentTimeoutMs > 0, "segment_timeout_ms must be positive")
	check(c.Transcription.RateLimitPerMin >= 0, "rate_limit_per_min must not be negative")

	check(c.Keypoints.MaxKeypoints > 0, "max_keypoints must be positive")
	check(c.Keypoints.MaxSpanSentences > 0, "max_span_sentences must be positive")
	check(c.Keypoints.OverlapThreshold >= 0 && c.Keypoints.OverlapThreshold <= 1,
		"overlap_threshold must be in [0,1]")

	if _, err := c.Summary.Bound(); err != nil {
		errs = append(errs, fmt.Errorf("summary length bound: %w", err))
	}
	switch strings.ToLower(c.Summary.Strategy) {
	case "extractive", "abstractive":
	default:
		errs = append(errs, fmt.Errorf("unknown summary strategy %q", c.Summary.Strategy))
	}

	check(c.Quiz.QuizSize > 0, "quiz_size must be positive")
	check(c.Quiz.MinQuizSize >= 0 && c.Quiz.MinQuizSize <= c.Quiz.QuizSize,
		"min_quiz_size must be between 0 and quiz_size")
	check(c.Quiz.DistractorCount >= 0, "distractor_count must not be negative")

	return errors.Join(errs...)
}
