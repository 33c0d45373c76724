package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	markup "github.com/alnah/go-trustedmarkup"
	"github.com/alnah/go-trustedmarkup/internal/hints"
)

// ErrWatch wraps file watcher failures.
var ErrWatch = errors.New("file watcher failed")

// watchedJob pairs an input with the host that keeps its portals alive
// between renders.
type watchedJob struct {
	job  renderJob
	host *markup.Host
}

// jobWatcher re-renders inputs when they change on disk.
type jobWatcher struct {
	s       *session
	fsw     *fsnotify.Watcher
	byPath  map[string]*watchedJob
	ordered []*watchedJob
	quiet   bool
	verbose bool
	env     *Environment
}

// newJobWatcher watches the directory of every job. Directories are watched
// rather than files so editors that replace files on save are still seen.
func newJobWatcher(s *session, jobs []renderJob, quiet, verbose bool, env *Environment) (*jobWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v%s", ErrWatch, err, hints.ForWatchLimit())
	}

	w := &jobWatcher{
		s:       s,
		fsw:     fsw,
		byPath:  make(map[string]*watchedJob, len(jobs)),
		quiet:   quiet,
		verbose: verbose,
		env:     env,
	}

	dirs := make(map[string]bool)
	for _, j := range jobs {
		wj := &watchedJob{job: j, host: s.renderer.NewHost()}
		w.byPath[filepath.Clean(j.InputPath)] = wj
		w.ordered = append(w.ordered, wj)

		dir := filepath.Dir(j.InputPath)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %s: %v%s", ErrWatch, dir, err, hints.ForWatchLimit())
		}
		s.logger.Debug("watching directory", "path", dir)
	}
	return w, nil
}

// renderAll renders every input once through its host.
func (w *jobWatcher) renderAll(ctx context.Context) []renderResult {
	results := make([]renderResult, 0, len(w.ordered))
	for _, wj := range w.ordered {
		results = append(results, renderFile(ctx, w.s, wj.host.Update, wj.job))
	}
	return results
}

// run re-renders changed inputs until ctx is done or the watcher closes.
func (w *jobWatcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			wj, ok := w.byPath[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			w.s.logger.Debug("input changed", "path", event.Name, "op", event.Op.String())
			result := renderFile(ctx, w.s, wj.host.Update, wj.job)
			printResults([]renderResult{result}, w.quiet, w.verbose, w.env)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.s.logger.Warn("watch error", "error", err)
		}
	}
}

// Close releases every host and stops the file watcher.
func (w *jobWatcher) Close() error {
	for _, wj := range w.ordered {
		_ = wj.host.Close()
	}
	return w.fsw.Close()
}

// watchJobs renders jobs, then keeps re-rendering them as they change.
// Cancellation of ctx is the normal way out and is not an error.
func watchJobs(ctx context.Context, s *session, jobs []renderJob, quiet, verbose bool, env *Environment) error {
	w, err := newJobWatcher(s, jobs, quiet, verbose, env)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	printResults(w.renderAll(ctx), quiet, verbose, env)
	if !quiet {
		fmt.Fprintf(env.Stdout, "Watching %d inputs for changes (Ctrl+C to stop)\n", len(jobs))
	}
	return w.run(ctx)
}
