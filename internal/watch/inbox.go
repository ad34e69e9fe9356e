// Package watch ingests documents dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/service/assistant"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/session"
)

// DefaultSessionID is the session inbox documents are ingested into.
const DefaultSessionID = "inbox"

// DefaultDebounce is how long a file must stay quiet before it is read.
const DefaultDebounce = 500 * time.Millisecond

// Ingester extracts a document into a session.
type Ingester interface {
	Ingest(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact, source assistant.Source) models.Result
}

// Config holds inbox configuration.
type Config struct {
	Dir          string
	SessionID    string
	Debounce     time.Duration
	ScanExisting bool
}

// Inbox watches Dir and ingests every document written to it.
type Inbox struct {
	cfg      Config
	sessions *session.Store
	ingester Ingester
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New creates an inbox.
func New(cfg Config, sessions *session.Store, ingester Ingester) *Inbox {
	if cfg.SessionID == "" {
		cfg.SessionID = DefaultSessionID
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Inbox{
		cfg:      cfg,
		sessions: sessions,
		ingester: ingester,
		metrics:  metrics.DefaultMetrics,
		logger:   logging.WithSession("inbox", cfg.SessionID),
	}
}

// Run watches the directory until ctx is done.
func (i *Inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(i.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", i.cfg.Dir, err)
	}
	i.logger.Info().Str("dir", i.cfg.Dir).Msg("Watching inbox")

	if i.cfg.ScanExisting {
		i.scan(ctx)
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(i.cfg.Debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !format.Detect(event.Name).IsDocument() {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending[event.Name] = time.Now()
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn().Err(err).Msg("Inbox watcher error")
		case now := <-ticker.C:
			for _, path := range due(pending, now, i.cfg.Debounce) {
				delete(pending, path)
				i.Process(ctx, path)
			}
		}
	}
}

// due returns the pending paths quiet for at least d, oldest name first.
func due(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var out []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (i *Inbox) scan(ctx context.Context) {
	entries, err := os.ReadDir(i.cfg.Dir)
	if err != nil {
		i.logger.Warn().Err(err).Msg("Failed to scan inbox")
		return
	}
	for _, e := range entries {
		if e.IsDir() || !format.Detect(e.Name()).IsDocument() {
			continue
		}
		i.Process(ctx, filepath.Join(i.cfg.Dir, e.Name()))
	}
}

// Process ingests one file into the inbox session.
func (i *Inbox) Process(ctx context.Context, path string) models.Result {
	name := filepath.Base(path)
	kind := format.Detect(name)

	f, err := os.Open(path)
	if err != nil {
		i.logger.Warn().Err(err).Str("artifact", name).Msg("Failed to open inbox file")
		i.metrics.RecordInboxFile(string(kind), "open_failed")
		return models.Result{Outcome: models.OutcomeExtractionFailed, Err: err}
	}
	defer f.Close()

	sess := i.sessions.Ensure(i.cfg.SessionID)
	res := i.ingester.Ingest(ctx, sess, models.UploadedArtifact{Name: name, Body: f}, assistant.SourceInbox)
	i.metrics.RecordInboxFile(string(kind), string(res.Outcome))
	return res
}
