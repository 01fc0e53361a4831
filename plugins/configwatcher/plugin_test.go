package configwatcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bft-labs/foundation"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/hub"
	"github.com/bft-labs/foundation/pkg/log"
)

type reloadRecorder struct {
	mu   sync.Mutex
	cfgs []*config.Config
	errs []error
}

func (r *reloadRecorder) record(cfg *config.Config, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, cfg)
	r.errs = append(r.errs, err)
}

func (r *reloadRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cfgs)
}

func (r *reloadRecorder) last() (*config.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfgs[len(r.cfgs)-1], r.errs[len(r.errs)-1]
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newCoordinator(t *testing.T) (*foundation.Coordinator, foundation.Deps) {
	t.Helper()
	c := foundation.New(foundation.WithLogger(log.NewNoopLogger()))
	return c, foundation.Deps{
		Hub:     hub.New(),
		Loggers: log.ZerologFactory{Output: io.Discard},
	}
}

func TestPlugin_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "service_name = \"v1\"\n")

	c, deps := newCoordinator(t)
	first, _, err := c.Initialize(context.Background(), deps)
	require.NoError(t, err)
	epoch := c.State().Epoch

	rec := &reloadRecorder{}
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.DebounceDelay = 20 * time.Millisecond
	cfg.OnReload = rec.record
	cfg.Base.LogFormat = config.FormatJSON
	cfg.Changed = map[string]bool{"log-format": true}

	p := New(cfg, c, deps, nil)
	require.NoError(t, p.Start(context.Background()))

	writeConfig(t, path, "service_name = \"v2\"\nlog_format = \"console\"\n")

	require.Eventually(t, func() bool {
		if rec.count() == 0 {
			return false
		}
		got, _ := rec.last()
		return got != nil && got.ServiceName == "v2"
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, p.Reloads(), 1)

	s := c.State()
	assert.Equal(t, foundation.StatusInitialized, s.Status)
	assert.Equal(t, "v2", s.Config.ServiceName)
	assert.Equal(t, config.FormatJSON, s.Config.LogFormat, "flag-set values survive reload")
	assert.NotSame(t, first, s.Config)
	assert.NotEqual(t, epoch, s.Epoch)

	got, reloadErr := rec.last()
	assert.NoError(t, reloadErr)
	assert.Same(t, s.Config, got)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "service_name = \"v1\"\n")

	c, deps := newCoordinator(t)
	rec := &reloadRecorder{}
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.DebounceDelay = 10 * time.Millisecond
	cfg.OnReload = rec.record

	p := New(cfg, c, deps, nil)
	require.NoError(t, p.Start(context.Background()))

	writeConfig(t, filepath.Join(dir, "other.toml"), "service_name = \"nope\"\n")
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Equal(t, foundation.StatusUninitialized, c.State().Status)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPlugin_InvalidConfigRetriesThenGivesUp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "service_name = \"v1\"\n")

	c, deps := newCoordinator(t)
	rec := &reloadRecorder{}
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.DebounceDelay = 10 * time.Millisecond
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.MaxRetries = 2
	cfg.OnReload = rec.record

	p := New(cfg, c, deps, nil)
	require.NoError(t, p.Start(context.Background()))

	writeConfig(t, path, "log_level = \"deafening\"\n")

	require.Eventually(t, func() bool { return rec.count() >= 3 }, 5*time.Second, 10*time.Millisecond)
	_, err := rec.last()
	assert.True(t, config.IsParseError(err))
	assert.Zero(t, p.Reloads())
	assert.Equal(t, foundation.StatusUninitialized, c.State().Status, "invalid files never reach the coordinator")

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPlugin_StartRequiresPath(t *testing.T) {
	c, deps := newCoordinator(t)
	p := New(Config{}, c, deps, nil)
	assert.ErrorIs(t, p.Start(context.Background()), ErrNoPath)
	assert.Equal(t, "configwatcher", p.Name())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestBackoff(t *testing.T) {
	b := newBackoff(20*time.Millisecond, 40*time.Millisecond)

	// Jitter is at most 20%, so each wait lasts at least 80% of its step.
	minWaits := []time.Duration{16 * time.Millisecond, 32 * time.Millisecond, 32 * time.Millisecond}
	for i, floor := range minWaits {
		start := time.Now()
		require.True(t, b.Wait(context.Background()))
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, floor, "wait %d", i)
		assert.Less(t, elapsed, time.Second, "wait %d is capped", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := newBackoff(time.Hour, time.Hour)
	assert.False(t, slow.Wait(ctx))
}
