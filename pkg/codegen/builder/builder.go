// Package builder turns a plugin identifier into a loadable artifact: it
// renders the kind's template into a scratch workspace, compiles it, and
// moves the result into the library directory.
package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// Builder builds plugin artifacts on demand. Builds of one identifier are
// collapsed into a single flight; distinct identifiers build in parallel.
type Builder struct {
	cfg     Config
	catalog *templates.Catalog
	suffix  string
	flights singleflight.Group
	history *lru.LRU[string, *Record]
	metrics *observability.Metrics
	log     *logrus.Logger
}

// New creates a builder. It fails when the platform has no library suffix.
func New(cfg Config, catalog *templates.Catalog, metrics *observability.Metrics, log *logrus.Logger) (*Builder, error) {
	if log == nil {
		log = logrus.New()
	}
	if catalog == nil {
		catalog = templates.NewCatalog()
	}

	defaults := DefaultConfig()
	if cfg.LibDir == "" {
		cfg.LibDir = defaults.LibDir
	}
	if cfg.HostModuleDir == "" {
		cfg.HostModuleDir = defaults.HostModuleDir
	}
	if cfg.HostModule == "" {
		cfg.HostModule = defaults.HostModule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = defaults.HistoryTTL
	}

	suffix, err := plugins.LibSuffix()
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:     cfg,
		catalog: catalog,
		suffix:  suffix,
		history: lru.NewLRU[string, *Record](cfg.HistorySize, nil, cfg.HistoryTTL),
		metrics: metrics,
		log:     log,
	}, nil
}

// ArtifactPath returns where the artifact for id is placed
func (b *Builder) ArtifactPath(id string) string {
	return plugins.ArtifactPath(b.cfg.LibDir, id, b.suffix)
}

// Kinds lists the kinds this builder can build
func (b *Builder) Kinds() []string {
	return b.catalog.Kinds()
}

// EnsureBuilt makes sure an artifact for id exists. An existing artifact is
// left untouched; otherwise the kind's template is built. Unknown kinds fail
// with templates.ErrUnsupportedKind before anything is written.
func (b *Builder) EnsureBuilt(ctx context.Context, id string) error {
	if err := plugins.ValidateIdentifier(id); err != nil {
		return err
	}
	if b.artifactExists(id) {
		return nil
	}

	tmpl, err := b.catalog.Get(id)
	if err != nil {
		return err
	}

	// The flight outlives a caller that goes away; Timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	_, err, shared := b.flights.Do(id, func() (interface{}, error) {
		if b.artifactExists(id) {
			return nil, nil
		}
		return nil, b.build(flightCtx, id, tmpl)
	})
	if shared {
		b.log.WithField("id", id).Debug("Joined in-flight build")
	}
	return err
}

func (b *Builder) artifactExists(id string) bool {
	info, err := os.Stat(b.ArtifactPath(id))
	return err == nil && !info.IsDir()
}

func (b *Builder) build(ctx context.Context, id string, tmpl *templates.Template) (err error) {
	ctx, span := otel.Tracer("plughost/codegen").Start(ctx, "builder.build")
	span.SetAttributes(attribute.String("plugin.id", id), attribute.String("plugin.kind", tmpl.Kind))
	defer span.End()

	record := &Record{
		BuildID:   uuid.New().String(),
		ID:        id,
		Kind:      tmpl.Kind,
		StartedAt: time.Now(),
	}
	log := b.log.WithFields(logrus.Fields{"id": id, "build_id": record.BuildID})
	log.Info("Building plugin")

	defer func() {
		record.FinishedAt = time.Now()
		record.Duration = record.FinishedAt.Sub(record.StartedAt)
		record.Status = StatusSuccess
		if err != nil {
			record.Status = StatusFailed
			record.Error = err.Error()
			var buildErr *BuildError
			if errors.As(err, &buildErr) {
				record.Stage = buildErr.Stage
				record.Output = buildErr.Output
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.WithError(err).Error("Plugin build failed")
		} else {
			record.Artifact = b.ArtifactPath(id)
			log.WithField("duration", record.Duration).Info("Plugin built")
		}
		b.history.Add(record.BuildID, record)
		b.metrics.RecordBuild(tmpl.Kind, record.Status, record.Duration)
	}()

	if err := os.MkdirAll(b.scratchDir(), 0755); err != nil {
		return stageError(id, StageWorkspace, ErrWorkspace, "", err)
	}
	workspace, err := os.MkdirTemp(b.scratchDir(), fmt.Sprintf("plughost-%s-*", id))
	if err != nil {
		return stageError(id, StageWorkspace, ErrWorkspace, "", err)
	}
	defer os.RemoveAll(workspace)

	if err := b.emit(workspace, id, tmpl); err != nil {
		return err
	}

	outPath := filepath.Join(workspace, "out", plugins.ArtifactName(id, b.suffix))
	if err := b.compile(ctx, workspace, id, outPath); err != nil {
		return err
	}

	if err := b.relocate(id, outPath); err != nil {
		return err
	}

	b.writeManifest(id, tmpl.Kind, record.BuildID, log)
	return nil
}

func (b *Builder) scratchDir() string {
	if b.cfg.ScratchDir == "" {
		return os.TempDir()
	}
	return b.cfg.ScratchDir
}

// emit writes go.mod, go.sum (when the host has one) and plugin.go
func (b *Builder) emit(workspace, id string, tmpl *templates.Template) error {
	hostDir, err := filepath.Abs(b.cfg.HostModuleDir)
	if err != nil {
		return stageError(id, StageEmit, ErrSourceEmit, "", err)
	}

	rendered, err := tmpl.Render(templates.RenderData{
		ID:            id,
		HostModule:    b.cfg.HostModule,
		HostModuleDir: hostDir,
	})
	if err != nil {
		return stageError(id, StageEmit, ErrSourceEmit, "", err)
	}

	if err := os.WriteFile(filepath.Join(workspace, templates.ManifestFile), rendered.GoMod, 0644); err != nil {
		return stageError(id, StageEmit, ErrSourceEmit, "", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, templates.SourceFile), rendered.Source, 0644); err != nil {
		return stageError(id, StageEmit, ErrSourceEmit, "", err)
	}

	sum := filepath.Join(hostDir, "go.sum")
	if _, err := os.Stat(sum); err == nil {
		if err := copyFile(sum, filepath.Join(workspace, "go.sum")); err != nil {
			return stageError(id, StageEmit, ErrSourceEmit, "", err)
		}
	}

	return nil
}

func (b *Builder) compile(ctx context.Context, workspace, id, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return stageError(id, StageCompile, ErrCompile, "", err)
	}

	argv := b.cfg.command()
	args := make([]string, len(argv)-1)
	for i, arg := range argv[1:] {
		args[i] = strings.ReplaceAll(arg, OutputPlaceholder, outPath)
	}

	execCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, argv[0], args...)
	cmd.Dir = workspace
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.WaitDelay = 10 * time.Second
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", b.cfg.Timeout)
		}
		return stageError(id, StageCompile, ErrCompile, string(output), err)
	}

	if info, err := os.Stat(outPath); err != nil || info.IsDir() {
		return stageError(id, StageCompile, ErrCompile, string(output), fmt.Errorf("build produced no artifact"))
	}
	return nil
}

// relocate places the artifact through a temp file in LibDir so the final
// rename is atomic and an existing artifact is never rewritten in place.
func (b *Builder) relocate(id, outPath string) error {
	if err := os.MkdirAll(b.cfg.LibDir, 0755); err != nil {
		return stageError(id, StageRelocate, ErrArtifactMove, "", err)
	}

	tmp, err := os.CreateTemp(b.cfg.LibDir, "."+plugins.ArtifactName(id, b.suffix)+".tmp-*")
	if err != nil {
		return stageError(id, StageRelocate, ErrArtifactMove, "", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := os.Rename(outPath, tmpPath); err != nil {
		// Workspace and LibDir may be on different devices
		if err := copyFile(outPath, tmpPath); err != nil {
			os.Remove(tmpPath)
			return stageError(id, StageRelocate, ErrArtifactMove, "", err)
		}
	}

	if err := os.Rename(tmpPath, b.ArtifactPath(id)); err != nil {
		os.Remove(tmpPath)
		return stageError(id, StageRelocate, ErrArtifactMove, "", err)
	}
	return nil
}

func (b *Builder) writeManifest(id, kind, buildID string, log *logrus.Entry) {
	path := b.ArtifactPath(id)
	digest, size, err := fileDigest(path)
	if err != nil {
		log.WithError(err).Warn("Failed to hash artifact")
	}

	manifest := &plugins.Manifest{
		ID:        id,
		Kind:      kind,
		BuildID:   buildID,
		BuiltAt:   time.Now().UTC(),
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		SHA256:    digest,
		Size:      size,
	}
	if err := plugins.SaveManifest(manifest, plugins.ManifestPath(b.cfg.LibDir, id)); err != nil {
		log.WithError(err).Warn("Failed to write artifact manifest")
	}
}

// History returns recorded builds, newest first
func (b *Builder) History() []*Record {
	records := b.history.Values()
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records
}

// Latest returns the most recent build record for a plugin identifier
func (b *Builder) Latest(id string) (*Record, bool) {
	for _, r := range b.History() {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
