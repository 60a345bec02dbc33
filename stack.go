package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/drawlapp/drawl/internal/clipcache"
	"github.com/drawlapp/drawl/internal/speech"
	"github.com/drawlapp/drawl/pkg/ambience"
	"github.com/drawlapp/drawl/pkg/audio"
	"github.com/drawlapp/drawl/pkg/duck"
	"github.com/drawlapp/drawl/pkg/narrate"
)

// stack holds a fully wired playback pipeline: one audio backend shared
// by the narration queue and the ambient bed, plus the speech engine
// that turns lines into clips.
type stack struct {
	backend audio.Backend
	queue   *narrate.Queue
	amb     *ambience.Scheduler
	engine  speech.Engine
	cache   *clipcache.Tiered
}

// buildStack assembles the pipeline from the current flag and config
// state. Commands that never synthesize speech pass needEngine false
// and skip engine detection.
func buildStack(needEngine bool) (*stack, error) {
	kind := audio.KindAuto
	if mockAudio {
		kind = audio.KindMock
	}
	backend, err := audio.New(kind)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio backend: %w", err)
	}
	// The queue resumes per entry but the ambient bed never does, so
	// wake the device once before either starts.
	if err := backend.Resume(); err != nil {
		log.Warn("Audio: could not resume device", "err", err)
	}

	st := &stack{backend: backend}
	st.queue = narrate.New(backend, narrate.Config{Volume: volume, Rate: speechRate})
	if startMuted {
		st.queue.SetMuted(true)
	}

	if needEngine {
		eng, cache, err := buildEngine()
		if err != nil {
			st.close()
			return nil, err
		}
		st.engine = eng
		st.cache = cache
	}

	if !noAmbience {
		amb, err := ambience.New(backend, duck.New(st.queue), strokeClip(), ambienceConfig())
		if err != nil {
			st.close()
			return nil, fmt.Errorf("unable to set up ambience: %w", err)
		}
		amb.Start()
		st.amb = amb
	}
	return st, nil
}

func (st *stack) close() {
	if st.queue != nil {
		st.queue.Close()
	}
	if st.amb != nil {
		_ = st.amb.Stop()
	}
	if st.cache != nil {
		if err := st.cache.Close(); err != nil {
			log.Warn("Cache: close failed", "err", err)
		}
	}
	if st.backend != nil {
		if err := st.backend.Close(); err != nil {
			log.Warn("Audio: close failed", "err", err)
		}
	}
}

// buildEngine picks a speech engine from the flags, then wraps it with
// the rate limiter and the clip cache. A broken cache only costs the
// caching, not the narration.
func buildEngine() (speech.Engine, *clipcache.Tiered, error) {
	var (
		eng speech.Engine
		err error
	)
	switch engineName {
	case "", "auto":
		eng, err = speech.Detect()
	case "piper":
		if voiceName != "" {
			eng, err = speech.NewPiperWithModel(expandPath(voiceName))
		} else {
			eng, err = speech.NewPiper()
		}
	case "say", "espeak":
		var s *speech.Say
		s, err = speech.NewSay()
		if err == nil && voiceName != "" {
			s.SetVoice(voiceName)
		}
		eng = s
	default:
		return nil, nil, fmt.Errorf("unknown speech engine %q (try auto, piper or say)", engineName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("unable to set up speech engine: %w", err)
	}
	log.Debug("Speech engine ready", "engine", eng.Name(), "voice", eng.Voice())

	if rateLimit > 0 {
		eng = speech.NewLimited(eng, rateLimit)
	}

	cache, err := openCache()
	if err != nil {
		log.Warn("Cache: disabled", "err", err)
		return eng, nil, nil
	}
	return speech.NewCached(eng, cache), cache, nil
}

// openCache opens the tiered clip cache at the configured directory,
// falling back to the user cache dir.
func openCache() (*clipcache.Tiered, error) {
	dir := viper.GetString("cache.dir")
	if dir != "" {
		dir = expandPath(dir)
	} else {
		scope := gap.NewScope(gap.User, "drawl")
		cacheDir, err := scope.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(cacheDir, "clips")
	}

	disk, err := clipcache.NewDisk(dir, viper.GetInt64("cache.disk_mb")<<20, viper.GetInt("cache.compression"))
	if err != nil {
		return nil, err
	}
	mem := clipcache.NewMemory(viper.GetInt64("cache.memory_mb") << 20)
	return clipcache.NewTiered(mem, disk), nil
}

// strokeClip loads the configured stroke WAV. Any failure falls back to
// the synthesized stroke the scheduler carries.
func strokeClip() *audio.Clip {
	if strokeWAV == "" {
		return nil
	}
	clip, err := ambience.LoadStrokeClip(expandPath(strokeWAV))
	if err != nil {
		log.Warn("Ambience: using the synthesized stroke", "err", err)
		return nil
	}
	return clip
}

func ambienceConfig() ambience.Config {
	cfg := ambience.DefaultConfig()
	if d := viper.GetDuration("ambience.min_interval"); d > 0 {
		cfg.MinInterval = d
	}
	if d := viper.GetDuration("ambience.max_interval"); d > 0 {
		cfg.MaxInterval = d
	}
	cfg.NormalVolume = viper.GetFloat64("ambience.volume")
	cfg.DuckedVolume = viper.GetFloat64("ambience.ducked_volume")
	cfg.MinRate = viper.GetFloat64("ambience.min_rate")
	cfg.MaxRate = viper.GetFloat64("ambience.max_rate")
	return cfg
}
