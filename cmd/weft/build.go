package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	weft "github.com/hyperpolymath/weft"
)

const (
	configFile = "weft.yaml"
	cacheFile  = ".weft-cache"
	sourceExt  = ".weft"
)

// projectConfig mirrors weft.yaml. Command-line flags override whatever the
// file provides.
type projectConfig struct {
	Src     []string      `yaml:"src"`
	Out     string        `yaml:"out"`
	Compile configCompile `yaml:"compile"`
}

type configCompile struct {
	Profile   string `yaml:"profile"`
	Strict    *bool  `yaml:"strict"`
	Minify    bool   `yaml:"minify"`
	SourceMap bool   `yaml:"source_map"`
}

func loadConfig() (*projectConfig, error) {
	b, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}
	return &cfg, nil
}

// -----------------------------------------------------------------------------
// build
// -----------------------------------------------------------------------------

type buildCmd struct {
	Paths     []string `arg:"" optional:"" help:"Files or directories to compile (default: weft.yaml src, else '.')."`
	Out       *string  `placeholder:"DIR" help:"Output directory for generated files."`
	Profile   *string  `name:"profile-name" placeholder:"NAME" help:"Emission profile recorded in output headers."`
	Strict    *bool    `negatable:"" help:"Emit the strict-mode directive."`
	Minify    *bool    `help:"Request minified output."`
	SourceMap *bool    `name:"source-map" help:"Request source map emission."`
	Force     bool     `help:"Rebuild even when outputs are up to date."`
}

// buildSettings is the merge of defaults, weft.yaml, and flags, in that
// order of increasing precedence.
type buildSettings struct {
	roots []string
	out   string
	opts  weft.CompileOptions
	force bool
}

func (b *buildCmd) settings() (*buildSettings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s := &buildSettings{
		out:   "dist",
		opts:  *weft.DefaultCompileOptions(),
		force: b.Force,
	}
	if cfg != nil {
		if len(cfg.Src) > 0 {
			s.roots = cfg.Src
		}
		if cfg.Out != "" {
			s.out = cfg.Out
		}
		if cfg.Compile.Profile != "" {
			s.opts.Profile = cfg.Compile.Profile
		}
		if cfg.Compile.Strict != nil {
			s.opts.Strict = *cfg.Compile.Strict
		}
		s.opts.Minify = cfg.Compile.Minify
		s.opts.SourceMap = cfg.Compile.SourceMap
	}
	if len(b.Paths) > 0 {
		s.roots = b.Paths
	}
	if len(s.roots) == 0 {
		s.roots = []string{"."}
	}
	if b.Out != nil {
		s.out = *b.Out
	}
	if b.Profile != nil {
		s.opts.Profile = *b.Profile
	}
	if b.Strict != nil {
		s.opts.Strict = *b.Strict
	}
	if b.Minify != nil {
		s.opts.Minify = *b.Minify
	}
	if b.SourceMap != nil {
		s.opts.SourceMap = *b.SourceMap
	}
	return s, nil
}

func (b *buildCmd) Run() error {
	s, err := b.settings()
	if err != nil {
		return err
	}
	jobs, err := discoverSources(s.roots)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no %s sources under %s", sourceExt, strings.Join(s.roots, ", "))
	}

	start := time.Now()
	res := runBuild(context.Background(), s, jobs)
	line := fmt.Sprintf("built %d, skipped %d, failed %d in %s",
		res.built, res.skipped, res.failed, time.Since(start).Round(time.Millisecond))
	if res.failed > 0 {
		fmt.Fprintln(os.Stderr, styleError.Render(line))
		return errReported
	}
	fmt.Println(styleOK.Render(line))
	return nil
}

// buildJob maps one source file to its destination relative to the output
// directory.
type buildJob struct {
	src string
	rel string
}

func (j buildJob) dst(outDir string) string {
	return filepath.Join(outDir, strings.TrimSuffix(j.rel, sourceExt)+".js")
}

// discoverSources walks each root collecting .weft files. A root naming a
// file is taken as-is; hidden directories are skipped.
func discoverSources(roots []string) ([]buildJob, error) {
	var jobs []buildJob
	seen := map[string]bool{}
	add := func(src, rel string) {
		if !seen[src] {
			seen[src] = true
			jobs = append(jobs, buildJob{src: src, rel: rel})
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root, filepath.Base(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != sourceExt {
				return nil
			}
			rel, rerr := filepath.Rel(root, path)
			if rerr != nil {
				rel = filepath.Base(path)
			}
			add(path, rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].src < jobs[j].src })
	return jobs, nil
}

type buildResult struct {
	built, skipped, failed int
}

// runBuild compiles every job, bounded by GOMAXPROCS workers. Per-file
// failures are reported and counted but do not stop the other jobs.
func runBuild(ctx context.Context, s *buildSettings, jobs []buildJob) buildResult {
	cache := loadCache(filepath.Join(s.out, cacheFile))

	var (
		mu  sync.Mutex
		res buildResult
	)
	fail := func(report func()) {
		mu.Lock()
		defer mu.Unlock()
		res.failed++
		report()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			src, err := os.ReadFile(job.src)
			if err != nil {
				fail(func() { fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err) })
				return nil
			}

			dst := job.dst(s.out)
			hash := sourceHash(src, &s.opts)
			if !s.force && cache.current(job.src, hash) && fileExists(dst) {
				mu.Lock()
				res.skipped++
				mu.Unlock()
				slog.Debug("up to date", "file", job.src)
				return nil
			}

			js, err := weft.Compile(string(src), &s.opts)
			if err != nil {
				fail(func() { reportDiagnostics(job.src, string(src), err) })
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				fail(func() { fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err) })
				return nil
			}
			if err := os.WriteFile(dst, []byte(js), 0o644); err != nil {
				fail(func() { fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err) })
				return nil
			}

			mu.Lock()
			res.built++
			mu.Unlock()
			cache.set(job.src, hash)
			slog.Debug("compiled", "file", job.src, "out", dst)
			return nil
		})
	}
	_ = g.Wait()

	if err := cache.save(); err != nil {
		slog.Warn("cannot save build cache", "err", err)
	}
	return res
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sourceHash keys the build cache: the toolchain version and the effective
// options are folded in so upgrades and flag changes force a rebuild.
func sourceHash(src []byte, opts *weft.CompileOptions) uint64 {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(weft.Version)
	_ = enc.Encode(opts)
	buf.Write(src)
	return xxh3.Hash(buf.Bytes())
}

// buildCache remembers the hash each source compiled under. Entries are
// persisted as YAML next to the outputs.
type buildCache struct {
	path    string
	mu      sync.Mutex
	entries map[string]uint64
}

func loadCache(path string) *buildCache {
	c := &buildCache{path: path, entries: map[string]uint64{}}
	b, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := yaml.Unmarshal(b, &c.entries); err != nil {
		slog.Debug("ignoring unreadable build cache", "path", path, "err", err)
		c.entries = map[string]uint64{}
	}
	return c
}

func (c *buildCache) current(src string, hash uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[src] == hash
}

func (c *buildCache) set(src string, hash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[src] = hash
}

func (c *buildCache) save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	data, err := yaml.Marshal(c.entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// -----------------------------------------------------------------------------
// watch
// -----------------------------------------------------------------------------

type watchCmd struct {
	Build buildCmd `embed:""`
}

func (w *watchCmd) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	s, err := w.Build.settings()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs, err := watchDirs(s.roots)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	w.rebuild(ctx, s)
	fmt.Println(styleDim.Render(fmt.Sprintf("watching %d directories; Ctrl+C to stop", len(dirs))))

	// Events are debounced so editors that write in bursts trigger one
	// rebuild. A nil channel blocks forever, disarming the timer.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, serr := os.Stat(ev.Name); serr == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			if filepath.Ext(ev.Name) == sourceExt {
				slog.Debug("source changed", "file", ev.Name, "op", ev.Op)
				pending = time.After(200 * time.Millisecond)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", werr)

		case <-pending:
			pending = nil
			w.rebuild(ctx, s)
		}
	}
}

func (w *watchCmd) rebuild(ctx context.Context, s *buildSettings) {
	jobs, err := discoverSources(s.roots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return
	}
	start := time.Now()
	res := runBuild(ctx, s, jobs)
	line := fmt.Sprintf("[%s] built %d, skipped %d, failed %d",
		time.Since(start).Round(time.Millisecond), res.built, res.skipped, res.failed)
	if res.failed > 0 {
		fmt.Fprintln(os.Stderr, styleError.Render(line))
		return
	}
	fmt.Println(styleOK.Render(line))
}

// watchDirs lists every directory under roots, since the watcher does not
// recurse on its own.
func watchDirs(roots []string) ([]string, error) {
	var dirs []string
	seen := map[string]bool{}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			root = filepath.Dir(root)
			if !seen[root] {
				seen[root] = true
				dirs = append(dirs, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !seen[path] {
				seen[path] = true
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}
