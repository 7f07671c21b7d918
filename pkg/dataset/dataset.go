// Package dataset holds the read-only example records served by the demo
// plugins and the per-request Context that scopes them.
package dataset

import (
	"context"
	"sort"

	"github.com/platinummonkey/plughost/pkg/contextkeys"
)

// Light is the state carried by a Bar record
type Light string

const (
	LightBright Light = "BRIGHT"
	LightDark   Light = "DARK"
)

// Foo is an example record referencing a set of bars
type Foo struct {
	ID     int
	Name   string
	BarIDs []int
	flag   bool
}

// Bar is an example record
type Bar struct {
	ID    int
	Light Light
	flag  bool
}

var (
	foos = []Foo{
		{ID: 1, Name: "foo1", BarIDs: []int{1, 2}, flag: false},
		{ID: 2, Name: "foo2", BarIDs: []int{3, 4}, flag: false},
		{ID: 3, Name: "foo3", BarIDs: []int{5, 6}, flag: true},
		{ID: 4, Name: "foo4", BarIDs: []int{7, 8}, flag: true},
	}
	bars = []Bar{
		{ID: 1, Light: LightBright, flag: false},
		{ID: 2, Light: LightDark, flag: false},
		{ID: 3, Light: LightBright, flag: false},
		{ID: 4, Light: LightDark, flag: false},
		{ID: 5, Light: LightBright, flag: true},
		{ID: 6, Light: LightDark, flag: false},
		{ID: 7, Light: LightBright, flag: false},
		{ID: 8, Light: LightDark, flag: true},
	}
)

// Context is the data scope handed to a capability for a single request.
// It is built fresh per request and must not be retained after the call.
type Context struct {
	flag bool
	foos map[int]Foo
	bars map[int]Bar
}

// New builds a Context over the example dataset with the given toggle
func New(flag bool) *Context {
	dc := &Context{
		flag: flag,
		foos: make(map[int]Foo, len(foos)),
		bars: make(map[int]Bar, len(bars)),
	}
	for _, f := range foos {
		f.BarIDs = append([]int(nil), f.BarIDs...)
		dc.foos[f.ID] = f
	}
	for _, b := range bars {
		dc.bars[b.ID] = b
	}
	return dc
}

// Flag reports the toggle the context was built with
func (c *Context) Flag() bool {
	return c.flag
}

// Foos returns every foo whose stored flag matches the context toggle, ordered by ID
func (c *Context) Foos() []Foo {
	result := make([]Foo, 0, len(c.foos))
	for _, f := range c.foos {
		if f.flag == c.flag {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Foo looks up a single foo regardless of the toggle
func (c *Context) Foo(id int) (Foo, bool) {
	f, ok := c.foos[id]
	return f, ok
}

// Bars returns every bar whose stored flag matches the context toggle, ordered by ID
func (c *Context) Bars() []Bar {
	result := make([]Bar, 0, len(c.bars))
	for _, b := range c.bars {
		if b.flag == c.flag {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Bar looks up a single bar regardless of the toggle
func (c *Context) Bar(id int) (Bar, bool) {
	b, ok := c.bars[id]
	return b, ok
}

// BarsByIDs returns the bars among ids whose stored flag matches the toggle
func (c *Context) BarsByIDs(ids []int) []Bar {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	result := make([]Bar, 0, len(ids))
	for _, b := range c.Bars() {
		if _, ok := want[b.ID]; ok {
			result = append(result, b)
		}
	}
	return result
}

// WithContext attaches a data Context to ctx so resolvers can reach it
func WithContext(ctx context.Context, dc *Context) context.Context {
	return context.WithValue(ctx, contextkeys.DatasetKey, dc)
}

// FromContext returns the data Context attached to ctx, or an empty
// context with the toggle off if none was attached
func FromContext(ctx context.Context) *Context {
	if dc, ok := ctx.Value(contextkeys.DatasetKey).(*Context); ok && dc != nil {
		return dc
	}
	return New(false)
}
