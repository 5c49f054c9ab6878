package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// FileSource serves a snapshot from a local .json, .yaml or .yml file and
// hot-reloads it when the file changes. Useful for offline runs and tests.
type FileSource struct {
	logger *slog.Logger
	path   string
	holder *Holder
}

// NewFileSource creates a FileSource publishing into holder.
func NewFileSource(logger *slog.Logger, path string, holder *Holder) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	if holder == nil {
		panic("workspace: holder cannot be nil")
	}
	return &FileSource{logger: logger, path: path, holder: holder}
}

// Load reads the file once and publishes it.
func (s *FileSource) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("file", "error").Inc()
		return fmt.Errorf("read workspace %s: %w", s.path, err)
	}

	var ws *Workspace
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		ws, err = ParseYAML(data, s.logger)
	default:
		ws, err = ParseJSON(data, s.logger)
	}
	if err != nil {
		observability.WorkspaceFetchTotal.WithLabelValues("file", "error").Inc()
		return fmt.Errorf("parse workspace %s: %w", s.path, err)
	}

	s.holder.Store(ws)
	observability.WorkspaceFetchTotal.WithLabelValues("file", "updated").Inc()
	return nil
}

// Run loads the file and then reloads it on every write until ctx is cancelled.
// The parent directory is watched so editors that replace the file are handled.
func (s *FileSource) Run(ctx context.Context) error {
	if err := s.Load(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("workspace watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("workspace watcher add %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	s.logger.Info("watching workspace file", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if err := s.Load(); err != nil {
					// Keep the previous snapshot.
					s.logger.Warn("workspace reload failed", slog.String("error", err.Error()))
					continue
				}
				s.logger.Info("workspace reloaded from file", slog.String("path", target))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("workspace watcher error", slog.String("error", err.Error()))
		}
	}
}
