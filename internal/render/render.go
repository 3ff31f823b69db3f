package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatpage/internal/storage"
)

var (
	// ErrTemplateNotFound is returned when the template artifact is missing at render time.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateRender is returned when the template exists but cannot be read, parsed or executed.
	ErrTemplateRender = errors.New("template render failed")
)

const defaultReadTimeout = 5 * time.Second

// Engine renders named templates read from a storage.Source.
// It satisfies fiber.Views and is safe for concurrent use.
type Engine struct {
	src     storage.Source
	preload []string
	reload  bool
	timeout time.Duration
	logger  zerolog.Logger

	mu    sync.RWMutex
	gen   uint64
	cache map[string]*template.Template
}

// Option configures an Engine.
type Option func(e *Engine)

// WithPreload names templates that Load tries to parse ahead of the first request.
func WithPreload(names ...string) Option {
	return func(e *Engine) { e.preload = append(e.preload, names...) }
}

// WithReload disables caching so every render reads the template again.
func WithReload(reload bool) Option {
	return func(e *Engine) { e.reload = reload }
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithReadTimeout bounds a single read from the source.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an Engine reading templates from src.
func New(src storage.Source, opts ...Option) *Engine {
	e := &Engine{
		src:     src,
		timeout: defaultReadTimeout,
		logger:  zerolog.Nop(),
		cache:   make(map[string]*template.Template),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Load warms the cache for the preloaded templates. A template that cannot be
// read is logged once and left for Render, which fails until it shows up.
func (e *Engine) Load() error {
	if e.reload {
		return nil
	}

	for _, name := range e.preload {
		if _, err := e.lookup(name); err != nil {
			e.logger.Warn().Err(err).Str("_template", name).Msg("Template could not be preloaded")
		}
	}

	return nil
}

// Render executes the named template with binding as data. Layouts are not supported.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	tmpl, err := e.lookup(name)
	if err != nil {
		return err
	}

	if err := tmpl.Execute(w, binding); err != nil {
		return fmt.Errorf("%w: execute %s: %v", ErrTemplateRender, name, err)
	}

	return nil
}

// Invalidate drops every cached template.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.gen++
	e.cache = make(map[string]*template.Template)
	e.mu.Unlock()
}

// OnChanged implements watcher.ChangeListener.
func (e *Engine) OnChanged(logger zerolog.Logger) {
	e.Invalidate()
	logger.Info().Msg("Template changed, cache invalidated")
}

func (e *Engine) lookup(name string) (*template.Template, error) {
	if e.reload {
		return e.parse(name)
	}

	e.mu.RLock()
	tmpl, ok := e.cache[name]
	gen := e.gen
	e.mu.RUnlock()

	if ok {
		return tmpl, nil
	}

	tmpl, err := e.parse(name)
	if err != nil {
		return nil, err
	}

	// An invalidation during parse means tmpl may already be stale.
	e.mu.Lock()
	if e.gen == gen {
		e.cache[name] = tmpl
	}
	e.mu.Unlock()

	e.logger.Debug().Str("_template", name).Msg("Template parsed")

	return tmpl, nil
}

func (e *Engine) parse(name string) (*template.Template, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	rc, _, err := e.src.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateRender, name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateRender, name, err)
	}

	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrTemplateRender, name, err)
	}

	return tmpl, nil
}
