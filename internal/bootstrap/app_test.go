package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blendguard/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestApp_RunStopsOnCancel(t *testing.T) {
	app := &App{Cfg: nil, Logger: core.NopLogger{}}
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- app.run(ctx, runner) }()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestApp_RunPropagatesFirstError(t *testing.T) {
	app := &App{Logger: core.NopLogger{}}
	boom := errors.New("listen failed")

	stopped := make(chan struct{})
	err := app.run(context.Background(),
		runnerFunc(func(context.Context) error { return boom }),
		runnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}),
	)

	assert.ErrorIs(t, err, boom)
	select {
	case <-stopped:
	default:
		t.Fatal("sibling runner was not canceled")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
app:
  port: 5002
system:
  log_level: DEBUG
  log_file: `+filepath.Join(dir, "logs", "blendguard.log")+`
storage:
  path: `+filepath.Join(dir, "receipts.db")+`
`)

	app, err := NewApp(path)
	require.NoError(t, err)
	assert.Equal(t, 5002, app.Cfg.App.Port)
	assert.NotNil(t, app.Logger)
	app.Sync()
}

func TestLoadConfig_PreFlight(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
  chat_id: "42"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deeplink.secret")

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	path = writeConfig(t, "storage:\n  path: "+filepath.Join(file, "receipts.db")+"\n")
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
