package foundation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/foundation/pkg/hub"
	"github.com/bft-labs/foundation/pkg/log"
)

func testDeps() Deps {
	return Deps{
		Hub:     hub.New(),
		Loggers: log.ZerologFactory{Output: io.Discard},
	}
}

func TestDefault_Singleton(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	a := Default()
	assert.Same(t, a, Default())

	ResetForTesting()
	assert.NotSame(t, a, Default())
}

func TestInitialize_ProcessWide(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	_, _, err := Current()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, WaitForCompletion(0))

	cfg := DefaultConfig()
	cfg.ServiceName = "facade"
	got, logger, err := Initialize(context.Background(), testDeps(), WithConfig(&cfg))
	require.NoError(t, err)
	assert.Same(t, &cfg, got)

	cur, curLogger, err := Current()
	require.NoError(t, err)
	assert.Same(t, got, cur)
	assert.Same(t, logger, curLogger)
	assert.Equal(t, StatusInitialized, State().Status)
	assert.True(t, WaitForCompletion(0))

	other := DefaultConfig()
	other.ServiceName = "other"
	assert.False(t, UpdateConfigIfDefault(&other))

	require.NoError(t, Reset())
	assert.Equal(t, StatusUninitialized, State().Status)
}

func TestInitialize_ForceAndFailure(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	bad := DefaultConfig()
	bad.LogLevel = "deafening"
	_, _, err := Initialize(context.Background(), testDeps(), WithConfig(&bad))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitFailed)

	var ie *InitError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, StatusFailed, State().Status)

	_, _, err = Initialize(context.Background(), testDeps())
	assert.ErrorIs(t, err, ErrPreviouslyFailed)

	good := DefaultConfig()
	_, _, err = Initialize(context.Background(), testDeps(), WithConfig(&good), WithForce())
	require.NoError(t, err)
	upgraded := DefaultConfig()
	upgraded.ServiceName = "upgraded"
	assert.True(t, UpdateConfigIfDefault(&upgraded))
}

func TestNew_Independent(t *testing.T) {
	c := New(WithLogger(log.NewNoopLogger()))
	assert.NotSame(t, c, Default())
	assert.Equal(t, StatusUninitialized, c.State().Status)
}
