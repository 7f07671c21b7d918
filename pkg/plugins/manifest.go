package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the sidecar written next to a built artifact
type Manifest struct {
	ID        string    `yaml:"id" json:"id"`
	Kind      string    `yaml:"kind" json:"kind"`
	BuildID   string    `yaml:"build_id" json:"build_id"`
	BuiltAt   time.Time `yaml:"built_at" json:"built_at"`
	GoVersion string    `yaml:"go_version" json:"go_version"`
	GOOS      string    `yaml:"goos" json:"goos"`
	GOARCH    string    `yaml:"goarch" json:"goarch"`
	SHA256    string    `yaml:"sha256" json:"sha256"`
	Size      int64     `yaml:"size" json:"size"`
}

// ArtifactInfo describes an artifact found in the library directory
type ArtifactInfo struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	Manifest *Manifest `json:"manifest,omitempty"`
}

// ManifestPath returns the sidecar location for an identifier
func ManifestPath(libDir, id string) string {
	return filepath.Join(libDir, fmt.Sprintf("lib_%s.yaml", id))
}

// LoadManifest loads and parses a sidecar manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &manifest, nil
}

// SaveManifest writes a sidecar manifest
func SaveManifest(manifest *Manifest, path string) error {
	if err := ValidateManifest(manifest); err != nil {
		return err
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ValidateManifest checks the fields a sidecar must carry
func ValidateManifest(manifest *Manifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest cannot be nil")
	}

	var problems []string
	if err := ValidateIdentifier(manifest.ID); err != nil {
		problems = append(problems, err.Error())
	}
	if manifest.Kind == "" {
		problems = append(problems, "kind is required")
	}
	if manifest.BuiltAt.IsZero() {
		problems = append(problems, "built_at is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ListArtifacts scans libDir for artifacts with the given suffix. A missing
// directory yields an empty list.
func ListArtifacts(libDir, suffix string) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ArtifactInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	artifacts := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := IdentifierFromArtifact(entry.Name(), suffix)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		artifact := ArtifactInfo{
			ID:      id,
			Path:    filepath.Join(libDir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if m, err := LoadManifest(ManifestPath(libDir, id)); err == nil {
			artifact.Manifest = m
		}
		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].ID < artifacts[j].ID })
	return artifacts, nil
}
