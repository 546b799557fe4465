package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/api"
	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/cache"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
	"github.com/maria2021831011/NoteWhisper/internal/store"
	"github.com/maria2021831011/NoteWhisper/internal/whisper"
	"github.com/maria2021831011/NoteWhisper/internal/worker"
)

// buildBackends instantiates the recognizers and generator named in cfg.
// Backends shared by several languages are built once.
func buildBackends(cfg *config.Config, target worker.Target) (worker.Deps, error) {
	deps := worker.Deps{Recognizers: make(map[model.Language]backend.Recognizer)}
	built := make(map[string]backend.Recognizer)

	recognizer := func(name string) (backend.Recognizer, error) {
		name = strings.ToLower(strings.TrimSpace(name))
		if rec, ok := built[name]; ok {
			return rec, nil
		}
		var rec backend.Recognizer
		switch name {
		case "elevenlabs":
			el, err := api.NewElevenLabs(cfg.Backends)
			if err != nil {
				return nil, err
			}
			rec = el
		case "whisper":
			rec = &whisper.Recognizer{
				Command: cfg.Backends.WhisperCommand,
				Model:   cfg.Backends.WhisperModel,
			}
		default:
			return nil, fmt.Errorf("unknown speech-to-text backend %q", name)
		}
		built[name] = rec
		return rec, nil
	}

	for _, route := range []struct {
		lang model.Language
		name string
	}{
		{model.Bangla, cfg.Backends.Bangla},
		{model.English, cfg.Backends.English},
	} {
		if route.name == "" {
			continue
		}
		rec, err := recognizer(route.name)
		if err != nil {
			return deps, fmt.Errorf("%s backend: %w", route.lang, err)
		}
		deps.Recognizers[route.lang] = rec
	}
	if len(deps.Recognizers) == 0 {
		return deps, fmt.Errorf("no speech-to-text backend configured")
	}

	if cfg.Language.Probe {
		name := cfg.Backends.Probe
		if name == "" {
			name = cfg.Backends.Bangla
		}
		rec, err := recognizer(name)
		if err != nil {
			return deps, fmt.Errorf("probe backend: %w", err)
		}
		deps.Probe = rec
	}

	needGenerator := target != worker.TargetTranscribe &&
		(strings.EqualFold(cfg.Summary.Strategy, "abstractive") || (target == worker.TargetQuiz && cfg.Quiz.Rephrase))
	if needGenerator {
		switch name := strings.ToLower(cfg.Backends.Generator); name {
		case "anthropic":
			gen, err := api.NewAnthropic(cfg.Backends)
			if err != nil {
				return deps, err
			}
			deps.Generator = gen
		case "":
			return deps, fmt.Errorf("abstractive summaries and rephrasing need backends.generator")
		default:
			return deps, fmt.Errorf("unknown text generation backend %q", name)
		}
	}
	return deps, nil
}

// openCache opens the configured stage cache. The SQLite store doubles as
// run history and is returned separately when used.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, *store.DB, error) {
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	switch strings.ToLower(cfg.Cache.Backend) {
	case "sqlite", "":
		db, err := store.Open(cfg.Cache.Path, ttl)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "redis":
		r, err := cache.ConnectRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix, ttl)
		if err != nil {
			return nil, nil, err
		}
		return r, nil, nil
	case "memory":
		return cache.NewMemory(), nil, nil
	case "none":
		return cache.Nop{}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
