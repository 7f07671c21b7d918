package plugins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvictInterval(t *testing.T) {
	tests := []struct {
		interval time.Duration
		valid    bool
	}{
		{time.Second, true},
		{10 * time.Second, true},
		{time.Hour, true},
		{0, false},
		{200 * time.Millisecond, false},
		{999 * time.Millisecond, false},
		{1500 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.interval.String(), func(t *testing.T) {
			err := ValidateEvictInterval(tt.interval)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewEvictor_Validation(t *testing.T) {
	_, err := NewEvictor(nil, time.Second, nil, nil)
	assert.Error(t, err)

	r := NewRegistry(nil, nil, quietLogger())
	_, err = NewEvictor(r, 200*time.Millisecond, nil, nil)
	assert.Error(t, err)

	_, err = NewEvictor(r, 0, nil, nil)
	assert.Error(t, err)
}

func TestNormalizeEvictIDs(t *testing.T) {
	assert.Nil(t, normalizeEvictIDs(nil))
	assert.Nil(t, normalizeEvictIDs([]string{""}))
	assert.Nil(t, normalizeEvictIDs([]string{"foo", EvictAll}))
	assert.Equal(t, []string{"foo", "bar"}, normalizeEvictIDs([]string{"foo", "", "bar"}))
}

func TestEvictor_Tick(t *testing.T) {
	r := NewRegistry(nil, nil, quietLogger())
	for _, id := range []string{"foo", "bar", "baz"} {
		require.NoError(t, r.Add(handleFor(id)))
	}

	e, err := NewEvictor(r, time.Hour, []string{"foo", "bar"}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"bar", "foo"}, e.Tick())
	assert.Equal(t, []string{"baz"}, r.Keys())
	assert.Empty(t, e.Tick())

	all, err := NewEvictor(r, time.Hour, []string{EvictAll}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"baz"}, all.Tick())
	assert.Zero(t, r.Len())
}

func TestEvictor_StartStop(t *testing.T) {
	r := NewRegistry(nil, nil, quietLogger())
	require.NoError(t, r.Add(handleFor("foo")))

	e, err := NewEvictor(r, time.Second, nil, quietLogger())
	require.NoError(t, err)
	e.Start()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, e.Stop(ctx))
}
