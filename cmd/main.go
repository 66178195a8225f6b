package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/batch-sub-translator/internal/backend"
	"github.com/MimeLyc/batch-sub-translator/internal/cache"
	"github.com/MimeLyc/batch-sub-translator/internal/classifier"
	"github.com/MimeLyc/batch-sub-translator/internal/config"
	"github.com/MimeLyc/batch-sub-translator/internal/engine"
	"github.com/MimeLyc/batch-sub-translator/internal/glossary"
	"github.com/MimeLyc/batch-sub-translator/internal/prompt"
	"github.com/MimeLyc/batch-sub-translator/internal/scheduler"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// Exit codes reported to the caller.
const (
	exitOK          = 0
	exitConfigError = 2
	exitSomeFailed  = 3
	exitBackendDown = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Optional .env next to the binary, real env always wins.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return exitConfigError
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: batch-sub-translator <file-or-directory> [...]")
		return exitConfigError
	}

	paths, err := collectSubtitleFiles(args, cfg.Translate.TargetLang)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan input:", err)
		return exitConfigError
	}
	if len(paths) == 0 {
		log.Info("no subtitle files to translate")
		return exitOK
	}

	store, err := cache.New(cfg.Storage.CacheDB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open cache:", err)
		return exitConfigError
	}
	defer store.Close()

	glossaries, err := glossary.NewManager(cfg.Storage.GlossaryDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open glossaries:", err)
		return exitConfigError
	}

	translator, err := backend.New(cfg.Backend.Settings())
	if err != nil {
		fmt.Fprintln(os.Stderr, "backend:", err)
		return exitConfigError
	}

	profile := buildProfile(cfg.Prompt)
	builder := prompt.NewBuilder(profile, glossaries)
	eng := engine.New(translator, store, glossaries, classifier.New(), builder, engine.Options{
		SourceLang:   cfg.Translate.SourceLang,
		TargetLang:   cfg.Translate.TargetLang,
		SkipExisting: cfg.Translate.SkipExisting,
		SRTBatchSize: srtBatchSize(cfg),
		ASSBatchSize: cfg.Translate.ASSBatchSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if warmer, ok := translator.(backend.Warmer); ok {
		warmCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		err := warmer.Warmup(warmCtx)
		cancel()
		if err != nil {
			log.Error("backend is not available: %v", err)
			return exitBackendDown
		}
	}

	maintenance := startMaintenance(cfg.Storage, store)
	if maintenance != nil {
		defer maintenance.Stop()
	}

	eng.SetReporter(logReporter{})

	provider := newPathMetadataProvider(paths)
	runner := func(ctx context.Context, path string) (*engine.Result, error) {
		meta, _ := provider.Metadata(ctx, engine.SeriesIDFromPath(path))
		if meta.Title == "" {
			meta = seriesMetadata(path)
		}
		return eng.TranslateFile(ctx, path, meta)
	}
	sched := scheduler.New(cfg.Translate.MaxParallelism, runner, nil)
	for _, p := range paths {
		sched.Enqueue(p)
	}
	log.Info("translating %d file(s) with %s", len(paths), translator.Name())

	sched.Start()
	go func() {
		<-ctx.Done()
		sched.Stop()
	}()
	sched.Wait()
	sched.Stop()

	sum := sched.Summary()
	log.Info("done: %d succeeded, %d skipped, %d failed (lines=%d cached=%d rejected=%d)",
		sum.Succeeded, sum.Skipped, sum.Failed,
		sum.Stats.TotalLines, sum.Stats.CacheHits, sum.Stats.ValidationRejections)

	if sum.Failed > 0 {
		return exitSomeFailed
	}
	return exitOK
}

func buildProfile(pc config.PromptConfig) prompt.Profile {
	profile := prompt.DefaultProfile()
	profile.Temperature = pc.Temperature
	profile.ContextWindowSize = pc.ContextWindowSize
	profile.NumCtx = pc.NumCtx
	profile.NumThread = pc.NumThread
	profile.EnableContextual = pc.EnableContextual
	profile.EnableFewshot = pc.EnableFewshot
	profile.EnableBatch = pc.EnableBatch
	profile.EnableAutoGlossary = pc.EnableAutoGlossary
	return profile
}

// srtBatchSize honors ENABLE_BATCH: batching off forces line-by-line
// regardless of the configured sizes.
func srtBatchSize(cfg *config.Config) int {
	if !cfg.Prompt.EnableBatch {
		return 0
	}
	return cfg.Translate.SRTBatchSize
}

var subtitleExts = map[string]struct{}{
	".srt": {},
	".ass": {},
	".ssa": {},
}

// collectSubtitleFiles expands the given files and directories into the
// list of subtitle paths to translate, skipping files that already
// carry the target language in their name.
func collectSubtitleFiles(args []string, targetLang string) ([]string, error) {
	langMarker := "." + strings.ToLower(targetLang) + "."

	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := subtitleExts[ext]; !ok {
			return
		}
		if strings.Contains(strings.ToLower(filepath.Base(path)), langMarker) {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// logReporter routes engine progress into the application log.
type logReporter struct{}

func (logReporter) Progress(path string, percent int) {
	log.Debug("%s: %d%%", filepath.Base(path), percent)
}

func (logReporter) Log(level, message string) {
	switch level {
	case "debug":
		log.Debug("%s", message)
	case "warning":
		log.Warn("%s", message)
	case "error":
		log.Error("%s", message)
	default:
		log.Info("%s", message)
	}
}

// pathMetadataProvider answers metadata lookups from the directory
// layout of the scanned files, for runs without Sonarr or AniList.
type pathMetadataProvider struct {
	byID map[string]prompt.SeriesMetadata
}

var _ engine.SeriesMetadataProvider = (*pathMetadataProvider)(nil)

func newPathMetadataProvider(paths []string) *pathMetadataProvider {
	p := &pathMetadataProvider{byID: make(map[string]prompt.SeriesMetadata)}
	for _, path := range paths {
		id := engine.SeriesIDFromPath(path)
		if id == "" {
			continue
		}
		if _, ok := p.byID[id]; !ok {
			p.byID[id] = seriesMetadata(path)
		}
	}
	return p
}

func (p *pathMetadataProvider) Metadata(_ context.Context, seriesID string) (prompt.SeriesMetadata, error) {
	if meta, ok := p.byID[seriesID]; ok {
		return meta, nil
	}
	return prompt.SeriesMetadata{}, nil
}

// seriesMetadata derives a best-effort title from the directory layout.
// Sonarr-style folders look like "Show Name (2020) [tvdbid=12345]".
func seriesMetadata(path string) prompt.SeriesMetadata {
	title := filepath.Base(filepath.Dir(path))
	if i := strings.Index(title, " ["); i > 0 {
		title = title[:i]
	}
	if title == "." || title == string(filepath.Separator) {
		title = ""
	}
	return prompt.SeriesMetadata{Title: title}
}

// startMaintenance schedules periodic cache cleanup. Returns nil when
// disabled.
func startMaintenance(sc config.StorageConfig, store *cache.Cache) *cron.Cron {
	if sc.CleanupCron == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(sc.CleanupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := store.CleanupOld(ctx, sc.CacheMaxAgeDays); err != nil {
			log.Warn("cache cleanup: %v", err)
		} else if n > 0 {
			log.Info("cache cleanup removed %d stale entries", n)
		}
		if n, err := store.CleanupBad(ctx); err != nil {
			log.Warn("cache cleanup: %v", err)
		} else if n > 0 {
			log.Info("cache cleanup removed %d low-quality entries", n)
		}
	})
	if err != nil {
		log.Warn("invalid CLEANUP_CRON %q: %v", sc.CleanupCron, err)
		return nil
	}
	c.Start()
	return c
}
