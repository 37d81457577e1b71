package mapper

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type options struct {
	log     logrus.FieldLogger
	builder SchemaBuilder
}

// Option configures an Engine or Configuration.
type Option func(*options)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSchemaBuilder replaces the reflection-based schema builder.
func WithSchemaBuilder(b SchemaBuilder) Option {
	return func(o *options) {
		if b != nil {
			o.builder = b
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:     logrus.StandardLogger(),
		builder: ReflectSchemaBuilder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine owns one Configuration and translates queries against it.
// Create one at startup with New, call Initialize once, then share it with
// request handlers; Translate is safe for concurrent use once initialized.
type Engine struct {
	cfg *Configuration
	log logrus.FieldLogger
}

// New returns an engine with an empty, unsealed configuration.
func New(opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{
		cfg: NewConfiguration(opts...),
		log: o.log,
	}
}

// Initialize resets the configuration, runs setup against it and verifies
// it. Any error leaves the engine unsealed, so translations keep failing with
// *NotSealedError until a later Initialize succeeds.
func (e *Engine) Initialize(setup func(cfg *Configuration) error) error {
	e.cfg.Reset()
	if setup != nil {
		if err := setup(e.cfg); err != nil {
			e.log.WithError(err).Error("mapping setup failed")
			return fmt.Errorf("querymap: setup: %w", err)
		}
	}
	return e.cfg.Verify()
}

// Configuration returns the engine's configuration.
func (e *Engine) Configuration() *Configuration { return e.cfg }

// Schema returns the destination model; it fails until Initialize succeeds.
func (e *Engine) Schema() (*Model, error) { return e.cfg.Schema() }

// Translate rewrites clauses written against TSource into clauses against
// TDestination.
func Translate[TSource, TDestination any](e *Engine, clauses ClauseSet, rc RequestContext) (*TranslatedQuery, error) {
	return e.Translate(TypeOf[TSource](), TypeOf[TDestination](), clauses, rc)
}

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// Default returns the process-wide engine, creating it unsealed on first use.
// Prefer New when the host can own and pass the engine explicitly.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Initialize initializes the process-wide engine. See Engine.Initialize.
func Initialize(setup func(cfg *Configuration) error) error {
	return Default().Initialize(setup)
}
