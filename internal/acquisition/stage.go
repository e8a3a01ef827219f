package acquisition

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reelmill/internal/catalog"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/services"
	"reelmill/internal/textutil"
)

const stageName = "acquisition"

// Downloader fetches a magnet link into a directory.
type Downloader interface {
	Download(ctx context.Context, magnet, destDir string, onLine func(string)) (int, error)
}

// Catalog supplies candidate movies and forgets them once acquired.
type Catalog interface {
	Pick() (catalog.Entry, error)
	Remove(entry catalog.Entry) (int, error)
}

// Result describes a completed acquisition.
type Result struct {
	Title string
	Dir   string
	Files int
}

// Stage picks a movie from the catalog and downloads it into the movies root.
type Stage struct {
	moviesDir  string
	catalog    Catalog
	downloader Downloader
	notifier   notifications.Notifier
	logger     *slog.Logger
}

// NewStage wires the acquisition stage.
func NewStage(moviesDir string, cat Catalog, downloader Downloader, notifier notifications.Notifier, logger *slog.Logger) *Stage {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Stage{
		moviesDir:  moviesDir,
		catalog:    cat,
		downloader: downloader,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, stageName),
	}
}

// Acquire downloads one randomly chosen catalog entry. On success the entry is
// removed from the catalog; on failure the catalog is untouched so the movie
// can be picked again.
func (s *Stage) Acquire(ctx context.Context) (Result, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	if s.catalog == nil || s.downloader == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "init", "catalog and downloader are required", nil)
	}

	entry, err := s.catalog.Pick()
	if err != nil {
		marker := services.ErrConfiguration
		if errors.Is(err, catalog.ErrEmpty) {
			marker = services.ErrNotFound
		}
		return Result{}, services.Wrap(marker, stageName, "select", "pick catalog entry", err)
	}

	dirName := textutil.DirName(entry.Title)
	if dirName == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "select", "catalog title is not usable as a directory name", nil)
	}
	destDir := filepath.Join(s.moviesDir, dirName)

	logger.Info("movie selected",
		logging.String("title", entry.Title),
		logging.String("dest_dir", destDir),
		logging.String(logging.FieldEventType, "movie_selected"),
	)
	s.notifier.Notify(ctx, notifications.MovieSelected(dirName, entry.Magnet))

	if err := os.MkdirAll(s.moviesDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create movies root", err)
	}

	var once sync.Once
	files, err := s.downloader.Download(ctx, entry.Magnet, destDir, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		logger.Debug("aria2c output", logging.String("line", line))
		if isStartMarker(line) {
			once.Do(func() {
				logger.Info("download started", logging.String(logging.FieldEventType, "download_started"))
			})
		}
	})
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return Result{}, services.Wrap(marker, stageName, "download", entry.Title, err)
	}

	if removed, err := s.catalog.Remove(entry); err != nil {
		logging.WarnWithContext(logger, "catalog entry not removed", "catalog_remove_failed",
			logging.String("title", entry.Title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the row from the catalog file manually"),
			logging.String(logging.FieldImpact, "the movie may be downloaded again by a later run"),
		)
	} else {
		logger.Debug("catalog entry removed", logging.Int("rows", removed))
	}

	logger.Info("download complete",
		logging.String("title", entry.Title),
		logging.Int("files", files),
		logging.String(logging.FieldEventType, "download_complete"),
	)
	s.notifier.Notify(ctx, notifications.DownloadComplete(dirName))

	return Result{Title: entry.Title, Dir: destDir, Files: files}, nil
}
