package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFileStore_MissingFileUsesDefaults(t *testing.T) {
	f, err := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	s, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, Defaults().Equal(s))
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 30\n"), 0o600))

	f, err := NewFileStore(path)
	require.NoError(t, err)

	s, _ := f.Get(context.Background())
	assert.Equal(t, 30, s.Threshold)
	assert.Equal(t, ActionCollapse, s.Action)
	assert.Equal(t, []string{"en", "pl"}, s.EnabledLocales)
}

func TestFileStore_InvalidFile(t *testing.T) {
	tests := map[string]string{
		"bad yaml":   "threshold: [",
		"bad action": "action: shred\n",
		"bad range":  "threshold: 500\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := NewFileStore(path)
			require.Error(t, err)
		})
	}
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	f, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	s := Defaults()
	s.Threshold = 65
	s.Action = ActionBadge
	s.EnabledPlatforms["linkedin"] = true
	require.NoError(t, f.Save(ctx, s))
	require.NoError(t, f.SetLocales(ctx, []string{"pl"}))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, _ := reopened.Get(ctx)
	assert.Equal(t, 65, got.Threshold)
	assert.Equal(t, ActionBadge, got.Action)
	assert.Equal(t, []string{"pl"}, got.EnabledLocales)
	assert.True(t, got.PlatformEnabled("linkedin"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	f, err := NewFileStore(path)
	require.NoError(t, err)

	s := Defaults()
	s.Threshold = -5
	require.ErrorIs(t, f.Save(context.Background(), s), ErrInvalidThreshold)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_WatchExternalEdit(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	f, err := NewFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got [][]string
	require.NoError(t, f.WatchLocales(ctx, func(ids []string) {
		mu.Lock()
		got = append(got, ids)
		mu.Unlock()
	}))

	require.NoError(t, f.Start(ctx))
	defer f.Stop()

	require.NoError(t, os.WriteFile(path, []byte("enabled_locales: [en]\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"en"}, got[0])
	mu.Unlock()

	ids, _ := f.EnabledLocales(ctx)
	assert.Equal(t, []string{"en"}, ids)

	f.Stop()
}

func TestFileStore_WatchIgnoresInvalidEdit(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	core, logs := observer.New(zapcore.WarnLevel)
	f, err := NewFileStore(path, WithLogger(zap.New(core)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("action: shred\n"), 0o600))
	require.Eventually(t, func() bool {
		return logs.FilterMessage("ignoring settings file change").Len() > 0
	}, 5*time.Second, 10*time.Millisecond)

	s, _ := f.Get(ctx)
	assert.Equal(t, ActionCollapse, s.Action)

	f.Stop()
	f.Stop()
}

func TestFileStore_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	f, err := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.Start(ctx))
	require.NoError(t, f.Start(ctx), "second start is a no-op")
	cancel()
	f.Stop()
}
