package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/sync/errgroup"

	markup "github.com/alnah/go-trustedmarkup"
	"github.com/alnah/go-trustedmarkup/internal/assets"
	"github.com/alnah/go-trustedmarkup/internal/config"
	"github.com/alnah/go-trustedmarkup/internal/fileutil"
	"github.com/alnah/go-trustedmarkup/internal/glossary"
	"github.com/alnah/go-trustedmarkup/internal/hints"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Output file extensions. The second is used when an HTML input would
// otherwise be overwritten by its own output.
const (
	outputExtension    = "html"
	outputExtensionAlt = "rendered.html"
)

// maxInputSize bounds a single input read.
const maxInputSize = 16 << 20

// Sentinel errors for the render command.
var (
	ErrReadInput          = errors.New("failed to read input")
	ErrWriteOutput        = errors.New("failed to write output")
	ErrUnknownEncoding    = errors.New("cannot determine content encoding")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrWatchStdin         = errors.New("--watch requires input files")
	ErrRenderFailed       = errors.New("rendering failed")
	ErrLoadGlossary       = errors.New("failed to load glossary")
)

// renderJob is one input file and where its output goes.
type renderJob struct {
	InputPath  string
	OutputPath string
	Encoding   markup.Encoding
}

// renderResult holds the outcome of a single render.
type renderResult struct {
	Job      renderJob
	Err      error
	Duration time.Duration
	Portals  int
}

// renderFunc renders one unit. Both Renderer.Render and Host.Update fit.
type renderFunc func(ctx context.Context, unit markup.Unit) (*markup.Result, error)

// session holds what every render of one invocation shares.
type session struct {
	renderer *markup.Renderer
	page     *assets.PageRenderer // nil unless --standalone
	class    string
	logger   *slog.Logger
}

// runRender renders files, or stdin to stdout when no files are given.
func runRender(ctx context.Context, flags *renderFlags, files []string, env *Environment, logger *slog.Logger) error {
	cfg, err := resolveConfig(flags.config, env.Config)
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateWorkers(cfg.Render.Workers); err != nil {
		return err
	}

	s, err := newSession(cfg, flags.out.class, env, logger)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		if flags.watch {
			return ErrWatchStdin
		}
		return renderStdin(ctx, s, flags.encoding, env)
	}

	jobs, err := planJobs(files, flags.encoding, flags.out.output)
	if err != nil {
		return err
	}
	if flags.out.output != "" {
		if err := os.MkdirAll(flags.out.output, dirPermissions); err != nil {
			return fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory())
		}
	}

	if flags.watch {
		err := watchJobs(ctx, s, jobs, flags.quiet, flags.verbose, env)
		logMetrics(logger, env)
		return err
	}

	workers := resolveWorkers(cfg.Render.Workers)
	logger.Debug("rendering", "files", len(jobs), "workers", workers)

	results := renderBatch(ctx, s, jobs, workers)
	failed := printResults(results, flags.quiet, flags.verbose, env)
	logMetrics(logger, env)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", ErrRenderFailed, failed, len(results))
	}
	return nil
}

// resolveConfig loads the named config, or returns the environment default.
func resolveConfig(nameOrPath string, fallback *config.Config) (*config.Config, error) {
	if nameOrPath == "" {
		if fallback == nil {
			return config.DefaultConfig(), nil
		}
		cfg := *fallback
		cfg.Glossary.Files = append([]string(nil), fallback.Glossary.Files...)
		return &cfg, nil
	}
	cfg, err := config.LoadConfig(nameOrPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(configSearchPaths(nameOrPath)))
	}
	return cfg, err
}

// configSearchPaths lists where a config name is looked up, for hints.
func configSearchPaths(name string) []string {
	paths := []string{name + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "go-trustedmarkup", name+".yaml"))
	}
	return paths
}

// mergeFlags applies explicitly set flags over config values.
func mergeFlags(flags *renderFlags, cfg *config.Config) {
	if flags.site.origin != "" {
		cfg.Site.Origin = flags.site.origin
	}
	if flags.site.variant != "" {
		cfg.Site.Variant = flags.site.variant
	}
	if flags.site.environment != "" {
		cfg.Site.Environment = flags.site.environment
	}
	if flags.sanitize {
		cfg.Sanitize.Enabled = true
	}
	if flags.out.standalone {
		cfg.Render.Standalone = true
	}
	if flags.out.style != "" {
		cfg.Highlight.Style = flags.out.style
	}
	if flags.workers != 0 {
		cfg.Render.Workers = flags.workers
	}
	cfg.Glossary.Files = append(cfg.Glossary.Files, flags.glossary...)
}

// validateWorkers checks the worker count is within bounds.
func validateWorkers(n int) error {
	if n < 0 || n > config.MaxWorkers {
		return fmt.Errorf("%w: must be between 0 and %d, got %d", ErrInvalidWorkerCount, config.MaxWorkers, n)
	}
	return nil
}

// resolveWorkers determines the batch concurrency.
// Priority: explicit value > GOMAXPROCS (adjusted by automaxprocs for containers).
func resolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	n = runtime.GOMAXPROCS(0)
	if n > config.MaxWorkers {
		return config.MaxWorkers
	}
	return n
}

// newSession builds the renderer and, for standalone output, the page renderer.
func newSession(cfg *config.Config, class string, env *Environment, logger *slog.Logger) (*session, error) {
	variant := markup.Variant(strings.ToLower(cfg.Site.Variant))
	if variant == "" {
		variant = markup.VariantDefault
	}
	opts := []markup.Option{
		markup.WithSiteOrigin(cfg.Site.Origin),
		markup.WithVariant(variant),
		markup.WithSanitizing(cfg.Sanitize.Enabled),
		markup.WithLogger(logger),
	}
	if env.Registry != nil {
		opts = append(opts, markup.WithMetrics(env.Registry))
	}

	if len(cfg.Glossary.Files) > 0 {
		store, err := loadGlossary(cfg.Glossary.Files)
		if err != nil {
			return nil, err
		}
		logger.Debug("glossary loaded", "files", len(cfg.Glossary.Files), "terms", store.Len())
		opts = append(opts, markup.WithGlossary(store, strings.ToUpper(cfg.Site.Environment)))
	}

	r, err := markup.NewRenderer(opts...)
	if err != nil {
		return nil, err
	}
	s := &session{renderer: r, class: class, logger: logger}

	if cfg.Render.Standalone {
		s.page, err = assets.NewPageRenderer(env.AssetLoader, cfg.Highlight.Style)
		if errors.Is(err, assets.ErrHighlightStyleNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForHighlightStyle(styles.Names()))
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// loadGlossary loads every glossary file into one store.
func loadGlossary(paths []string) (*glossary.Store, error) {
	store := glossary.NewStore()
	for _, p := range paths {
		if err := store.LoadFile(p); err != nil {
			return nil, fmt.Errorf("%w: %w%s", ErrLoadGlossary, err, hints.ForGlossaryFile(p))
		}
	}
	return store, nil
}

// planJobs expands inputs into render jobs. Directories contribute every file
// with a recognized extension; explicit files need a known encoding unless
// encodingFlag is set.
func planJobs(inputs []string, encodingFlag, outDir string) ([]renderJob, error) {
	var jobs []renderJob
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
		}

		if !info.IsDir() {
			enc, err := encodingFor(input, encodingFlag)
			if err != nil {
				return nil, err
			}
			out, err := outputPathFor(input, outDir)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, renderJob{InputPath: input, OutputPath: out, Encoding: enc})
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() || fileutil.EncodingForPath(path) == "" {
				return nil
			}
			// Rendered output from an earlier run is not an input.
			if strings.HasSuffix(path, "."+outputExtensionAlt) {
				return nil
			}
			enc, err := encodingFor(path, encodingFlag)
			if err != nil {
				return err
			}
			dir := outDir
			if outDir != "" {
				rel, err := filepath.Rel(input, filepath.Dir(path))
				if err != nil {
					return err
				}
				dir = filepath.Join(outDir, rel)
			}
			out, err := outputPathFor(path, dir)
			if err != nil {
				return err
			}
			jobs = append(jobs, renderJob{InputPath: path, OutputPath: out, Encoding: enc})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dropOutputs(jobs), nil
}

// dropOutputs removes jobs whose input is the output of another job, so a
// directory rendered in place does not pick up its previous results.
func dropOutputs(jobs []renderJob) []renderJob {
	outputs := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		outputs[filepath.Clean(j.OutputPath)] = true
	}
	kept := jobs[:0]
	for _, j := range jobs {
		if !outputs[filepath.Clean(j.InputPath)] {
			kept = append(kept, j)
		}
	}
	return kept
}

// encodingFor returns the flag's encoding, or the one implied by the extension.
func encodingFor(path, encodingFlag string) (markup.Encoding, error) {
	if encodingFlag != "" {
		return markup.ParseEncoding(encodingFlag), nil
	}
	enc := fileutil.EncodingForPath(path)
	if enc == "" {
		return "", fmt.Errorf("%w: %s%s", ErrUnknownEncoding, path, hints.ForUnknownEncoding(path))
	}
	return markup.Encoding(enc), nil
}

// outputPathFor derives the output path, never pointing back at the input.
func outputPathFor(input, outDir string) (string, error) {
	out, err := fileutil.OutputPath(input, outDir, outputExtension)
	if err != nil {
		return "", err
	}
	if filepath.Clean(out) == filepath.Clean(input) {
		return fileutil.OutputPath(input, outDir, outputExtensionAlt)
	}
	return out, nil
}

// renderBatch renders jobs concurrently, at most workers at a time.
func renderBatch(ctx context.Context, s *session, jobs []renderJob, workers int) []renderResult {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]renderResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = renderResult{Job: job, Err: err}
				return nil
			}
			results[i] = renderFile(ctx, s, s.renderer.Render, job)
			return nil
		})
	}
	// Per-file errors are kept in results.
	_ = g.Wait()
	return results
}

// renderFile reads one input, renders it and writes the output atomically.
func renderFile(ctx context.Context, s *session, render renderFunc, job renderJob) (result renderResult) {
	start := time.Now()
	result.Job = job
	defer func() { result.Duration = time.Since(start) }()

	content, err := readInput(job.InputPath)
	if err != nil {
		result.Err = err
		return result
	}

	res, err := render(ctx, s.unit(content, job.Encoding))
	if err != nil {
		result.Err = err
		return result
	}
	result.Portals = len(res.Mounted)

	out, err := s.wrap(titleFor(job.InputPath), res.HTML)
	if err != nil {
		result.Err = err
		return result
	}

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), dirPermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory())
		return result
	}
	if err := fileutil.WriteFileAtomic(job.OutputPath, out, filePermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
		return result
	}
	return result
}

// renderStdin renders standard input to standard output.
func renderStdin(ctx context.Context, s *session, encodingFlag string, env *Environment) error {
	data, err := io.ReadAll(io.LimitReader(env.Stdin, maxInputSize+1))
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
	}
	if len(data) > maxInputSize {
		return fmt.Errorf("%w: stdin exceeds %d bytes", ErrReadInput, maxInputSize)
	}

	enc := markup.EncodingMarkdown
	if encodingFlag != "" {
		enc = markup.ParseEncoding(encodingFlag)
	}

	res, err := s.renderer.Render(ctx, s.unit(string(data), enc))
	if err != nil {
		return err
	}
	out, err := s.wrap("stdin", res.HTML)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(env.Stdout, out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func readInput(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided input path
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReadInput, path, err)
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrReadInput, path, maxInputSize)
	}
	return string(data), nil
}

// unit builds the content unit for one input.
func (s *session) unit(content string, enc markup.Encoding) markup.Unit {
	return markup.Unit{Content: content, Encoding: enc, Class: s.class}
}

// wrap returns body as is, or as a standalone document when configured.
func (s *session) wrap(title, body string) (string, error) {
	if s.page == nil {
		return body, nil
	}
	var buf strings.Builder
	if err := s.page.Render(&buf, assets.Page{Title: title, Body: body}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// titleFor derives a page title from a file name.
func titleFor(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// resultSummary holds the count of succeeded and failed renders.
type resultSummary struct {
	Succeeded int
	Failed    int
}

func countResults(results []renderResult) resultSummary {
	var summary resultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults reports each result and returns the number of failures.
func printResults(results []renderResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Job.InputPath, r.Err)
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d portals, %v)\n",
				r.Job.InputPath, r.Job.OutputPath, r.Portals, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.Job.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary.Failed
}

// logMetrics writes the collected counters at debug level.
func logMetrics(logger *slog.Logger, env *Environment) {
	if env.Registry == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	families, err := env.Registry.Gather()
	if err != nil {
		logger.Debug("gathering metrics failed", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				attrs = append(attrs, "value", m.GetGauge().GetValue())
			}
			logger.Debug("metric", attrs...)
		}
	}
}
