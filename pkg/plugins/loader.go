package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Loader opens compiled artifacts from the library directory and resolves
// their entry point into a Capability
type Loader struct {
	libDir  string
	suffix  string
	opener  Opener
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewLoader creates a loader over libDir. It fails when the host platform
// has no native library suffix.
func NewLoader(libDir string, opener Opener, metrics *observability.Metrics, log *logrus.Logger) (*Loader, error) {
	if log == nil {
		log = logrus.New()
	}
	if opener == nil {
		return nil, fmt.Errorf("opener cannot be nil")
	}

	suffix, err := LibSuffix()
	if err != nil {
		return nil, err
	}

	return &Loader{
		libDir:  libDir,
		suffix:  suffix,
		opener:  opener,
		metrics: metrics,
		log:     log,
	}, nil
}

// Path returns the artifact path the loader uses for id
func (l *Loader) Path(id string) string {
	return ArtifactPath(l.libDir, id, l.suffix)
}

// HasArtifact reports whether an artifact exists for id
func (l *Loader) HasArtifact(id string) bool {
	info, err := os.Stat(l.Path(id))
	return err == nil && !info.IsDir()
}

// Load opens the artifact for id and invokes its entry point. It never
// triggers a build: a missing artifact is ErrArtifactMissing.
func (l *Loader) Load(ctx context.Context, id string) (*Handle, error) {
	_, span := otel.Tracer("plughost/plugins").Start(ctx, "plugins.Load")
	span.SetAttributes(attribute.String("plugin.id", id))
	defer span.End()

	handle, err := l.load(id)
	l.metrics.RecordLoad(loadStatus(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.log.WithError(err).WithField("plugin", id).Warn("Plugin load failed")
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"plugin": id,
		"path":   handle.Path,
	}).Info("Loaded plugin")
	return handle, nil
}

func (l *Loader) load(id string) (*Handle, error) {
	if err := ValidateIdentifier(id); err != nil {
		return nil, err
	}

	path := l.Path(id)
	if !l.HasArtifact(id) {
		return nil, &LoadError{ID: id, Path: path, Err: ErrArtifactMissing}
	}

	unit, err := l.opener.Open(id, path)
	if err != nil {
		return nil, &LoadError{ID: id, Path: path, Err: fmt.Errorf("%w: %v", ErrLoad, err)}
	}

	sym, err := unit.Lookup(EntryPointSymbol)
	if err != nil {
		return nil, &LoadError{ID: id, Path: path, Err: fmt.Errorf("%w: %s: %v", ErrSymbol, EntryPointSymbol, err)}
	}

	factory, err := resolveFactory(sym)
	if err != nil {
		return nil, &LoadError{ID: id, Path: path, Err: err}
	}

	capability := factory()
	if capability == nil {
		return nil, &LoadError{ID: id, Path: path, Err: fmt.Errorf("%w: %s returned nil", ErrSymbol, EntryPointSymbol)}
	}

	return &Handle{
		Capability: capability,
		Unit:       unit,
		Path:       path,
		LoadedAt:   time.Now(),
	}, nil
}

func resolveFactory(sym interface{}) (Factory, error) {
	switch fn := sym.(type) {
	case func() Capability:
		return fn, nil
	case Factory:
		return fn, nil
	case *func() Capability:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case *Factory:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has type %T, want func() Capability", ErrSymbol, EntryPointSymbol, sym)
}

func loadStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrArtifactMissing):
		return "missing"
	case errors.Is(err, ErrSymbol):
		return "symbol_error"
	default:
		return "load_error"
	}
}

// Artifacts lists the built artifacts in the library directory
func (l *Loader) Artifacts() ([]ArtifactInfo, error) {
	return ListArtifacts(l.libDir, l.suffix)
}
