package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

var libSuffixes = map[string]string{
	"linux":   "so",
	"freebsd": "so",
	"darwin":  "dylib",
	"windows": "dll",
}

// ValidateIdentifier checks that id is usable as a registry key and path component
func ValidateIdentifier(id string) error {
	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}

// LibSuffix returns the native library suffix for the host OS
func LibSuffix() (string, error) {
	return libSuffixFor(runtime.GOOS)
}

func libSuffixFor(goos string) (string, error) {
	suffix, ok := libSuffixes[goos]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return suffix, nil
}

// ArtifactName returns the artifact file name for an identifier
func ArtifactName(id, suffix string) string {
	return fmt.Sprintf("lib_%s.%s", id, suffix)
}

// ArtifactPath returns the conventional artifact location for an identifier
func ArtifactPath(libDir, id, suffix string) string {
	return filepath.Join(libDir, ArtifactName(id, suffix))
}

// IdentifierFromArtifact recovers the identifier from an artifact file name
func IdentifierFromArtifact(name, suffix string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, "lib_") || !strings.HasSuffix(base, "."+suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, "lib_"), "."+suffix)
	if ValidateIdentifier(id) != nil {
		return "", false
	}
	return id, true
}
