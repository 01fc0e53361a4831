package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndGet(t *testing.T) {
	h := New()

	meta := map[string]string{"source": "env"}
	require.NoError(t, h.Register("cfg", 42, DimensionSingleton, meta, false))

	v, ok := h.Get("cfg", DimensionSingleton)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	e, ok := h.Entry("cfg", DimensionSingleton)
	require.True(t, ok)
	assert.Equal(t, "env", e.Metadata["source"])
	assert.False(t, e.RegisteredAt.IsZero())

	// Stored metadata is a copy.
	meta["source"] = "mutated"
	e, _ = h.Entry("cfg", DimensionSingleton)
	assert.Equal(t, "env", e.Metadata["source"])
}

func TestHub_DimensionsAreIndependent(t *testing.T) {
	h := New()
	require.NoError(t, h.Register("x", 1, DimensionSingleton, nil, false))
	require.NoError(t, h.Register("x", 2, DimensionComponent, nil, false))

	a, _ := h.Get("x", DimensionSingleton)
	b, _ := h.Get("x", DimensionComponent)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, h.Len())
}

func TestHub_RegisterDuplicate(t *testing.T) {
	h := New()
	require.NoError(t, h.Register("x", 1, DimensionComponent, nil, false))

	err := h.Register("x", 2, DimensionComponent, nil, false)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	v, _ := h.Get("x", DimensionComponent)
	assert.Equal(t, 1, v, "failed registration must not overwrite")

	require.NoError(t, h.Register("x", 3, DimensionComponent, nil, true))
	v, _ = h.Get("x", DimensionComponent)
	assert.Equal(t, 3, v)
}

func TestHub_RegisterInvalidName(t *testing.T) {
	h := New()
	assert.ErrorIs(t, h.Register("", 1, DimensionComponent, nil, false), ErrInvalidName)
	assert.ErrorIs(t, h.Register("x", 1, "", nil, false), ErrInvalidName)
}

func TestHub_UnregisterAndList(t *testing.T) {
	h := New()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, h.Register(n, n, DimensionEventHandler, nil, false))
	}
	assert.Equal(t, []string{"a", "b", "c"}, h.List(DimensionEventHandler))

	assert.True(t, h.Unregister("b", DimensionEventHandler))
	assert.False(t, h.Unregister("b", DimensionEventHandler))
	assert.False(t, h.Has("b", DimensionEventHandler))
	assert.Equal(t, []string{"a", "c"}, h.List(DimensionEventHandler))
	assert.Empty(t, h.List(DimensionSingleton))
}

func TestHub_ConcurrentRegister(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.Register(fmt.Sprintf("c%d", i), i, DimensionComponent, nil, false)
			_ = h.Register("shared", i, DimensionSingleton, nil, true)
			_, _ = h.Get("shared", DimensionSingleton)
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.List(DimensionComponent), 50)
	assert.True(t, h.Has("shared", DimensionSingleton))
}

func TestDefault(t *testing.T) {
	ResetDefaultForTesting()
	t.Cleanup(ResetDefaultForTesting)

	a := Default()
	assert.Same(t, a, Default())

	ResetDefaultForTesting()
	assert.NotSame(t, a, Default())
}
