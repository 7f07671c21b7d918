//go:build !((linux || darwin || freebsd) && cgo)

package plugins

import (
	"fmt"
	"runtime"
)

// NativeSupported reports whether this build can open native plugins
const NativeSupported = false

// NativeOpener is unavailable on this build; every Open fails
type NativeOpener struct{}

// Open always fails
func (NativeOpener) Open(id, path string) (Unit, error) {
	return nil, fmt.Errorf("native plugins are not supported on %s/%s without cgo", runtime.GOOS, runtime.GOARCH)
}
