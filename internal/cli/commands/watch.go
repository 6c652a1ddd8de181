package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/dataset"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the grid and re-run it when data or configuration change",
		Long: `Run the grid once, then watch the configuration file, the dataset
directory and any watch.paths for changes. After each burst of changes the
configuration is reloaded and the grid runs again. Rows completed by earlier
runs are kept, so only new or failed combinations are evaluated.

Watched directories are fixed at start; restart watch to pick up new
watch.paths entries.`,
		Example: `  # Watch the grid of gridbench.yaml
  gridbench watch

  # Wait two seconds after the last change before re-running
  GRIDBENCH_WATCH__DEBOUNCE_MS=2000 gridbench watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, label)
		},
	}

	cmd.Flags().StringVar(&label, "label", "watch", "Label recorded in the run history")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, label string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	logger := cmdCtx.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	session := &watchSession{
		debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		ignore:   []string{cfg.Output.Directory, filepath.Dir(cfg.StatePath)},
		add:      func(dir string) error { return addTree(watcher, dir) },
		logger:   logger,
	}
	if cfg.ConfigFile != "" {
		abs, err := filepath.Abs(cfg.ConfigFile)
		if err != nil {
			return err
		}
		session.configFile = abs
		// The config file is watched through its directory so editors that
		// replace the file on save keep triggering events.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", abs, err)
		}
	}
	for _, root := range watchRoots(cfg) {
		if err := session.addRoot(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	flags := cmd.Flags()
	session.rerun = func(ctx context.Context) {
		next, err := config.LoadConfig(cfg.ConfigFile, flags)
		if err != nil {
			r.Error(fmt.Sprintf("failed to reload configuration: %v", err))
			return
		}
		cmdCtx.Cfg = next
		if _, err := executeGrid(ctx, cmdCtx, label); err != nil && ctx.Err() == nil {
			r.Error(err.Error())
		}
	}

	session.rerun(ctx)
	if ctx.Err() != nil {
		return nil
	}
	for _, root := range session.roots {
		r.Muted("Watching " + root)
	}
	r.Muted("Press Ctrl+C to stop")

	return session.loop(ctx, watcher.Events, watcher.Errors)
}

// watchRoots returns the directories whose content feeds the grid.
func watchRoots(cfg *config.Config) []string {
	var roots []string
	if cfg.Source.Type == dataset.DirectoryType {
		if root, ok := cfg.Source.Params["root"].(string); ok && root != "" {
			roots = append(roots, root)
		}
	}
	return append(roots, cfg.Watch.Paths...)
}

// watchSession turns bursts of file events into grid re-runs.
type watchSession struct {
	debounce   time.Duration
	configFile string
	// roots are watched recursively.
	roots []string
	// ignore holds directories the grid itself writes to.
	ignore []string
	add    func(dir string) error
	rerun  func(ctx context.Context)
	logger *slog.Logger
}

func (s *watchSession) addRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := s.add(abs); err != nil {
		return err
	}
	s.roots = append(s.roots, abs)
	return nil
}

// relevant reports whether an event should schedule a re-run.
func (s *watchSession) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	for _, dir := range s.ignore {
		if abs, err := filepath.Abs(dir); err == nil && within(name, abs) {
			return false
		}
	}
	if name == s.configFile {
		return true
	}
	for _, root := range s.roots {
		if within(name, root) {
			return true
		}
	}
	return false
}

// loop waits for relevant events and re-runs the grid once no further event
// arrived for the debounce interval. Re-runs never overlap.
func (s *watchSession) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			s.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.add(event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			timer.Reset(s.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			s.rerun(ctx)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// addTree adds dir and its non-hidden subdirectories to the watcher.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
