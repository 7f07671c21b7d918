//go:build (linux || darwin || freebsd) && cgo

package plugins

import "plugin"

// NativeSupported reports whether this build can open native plugins
const NativeSupported = true

// NativeOpener opens artifacts with the Go plugin runtime. Go never unloads
// a plugin, so a unit stays mapped for the life of the process once opened.
type NativeOpener struct{}

// Open loads the shared object at path
func (NativeOpener) Open(id, path string) (Unit, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return nativeUnit{p: p}, nil
}

type nativeUnit struct {
	p *plugin.Plugin
}

func (u nativeUnit) Lookup(symbol string) (interface{}, error) {
	sym, err := u.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}
