package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/server/httpserver"
	"github.com/yndnr/shardmap-go/internal/server/localserver"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

type countingAdmin struct {
	m       *shardmap.Map[string, []byte]
	reloads int
}

func (a *countingAdmin) Entries() int  { return a.m.Len() }
func (a *countingAdmin) Reload() error { a.reloads++; return nil }

func startLocal(t *testing.T) (string, *countingAdmin) {
	t.Helper()
	dir, err := os.MkdirTemp("", "smcmd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "s.sock")

	m, err := shardmap.New[string, []byte](4)
	require.NoError(t, err)
	admin := &countingAdmin{m: m}
	api := httpserver.NewRouter(&httpserver.RouterConfig{Map: m, Logger: logger.Discard()})
	srv := localserver.New(sock, localserver.NewHandler(api, admin, logger.Discard()), logger.Discard())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return "unix://" + sock, admin
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &bytes.Buffer{}
	app.Reader = strings.NewReader("")
	app.ExitErrHandler = func(*cli.Context, error) {}
	profile := filepath.Join(t.TempDir(), "cli.yaml")
	err := app.Run(append([]string{"shardmap-cli", "--config", profile}, args...))
	return stdout.String(), err
}

func TestLocal_StatusAndReload(t *testing.T) {
	server, admin := startLocal(t)
	require.NoError(t, admin.m.Insert("a", []byte("1")))

	out, err := runApp(t, "--server", server, "local", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "entries")
	assert.Contains(t, out, "goroutines")

	out, err = runApp(t, "--server", server, "local", "reload")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration reloaded")
	assert.Equal(t, 1, admin.reloads)

	// Regular commands work over the socket too.
	out, err = runApp(t, "--server", server, "key", "get", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "a")
}

func TestLocal_RequiresSocket(t *testing.T) {
	_, err := runApp(t, "--server", "127.0.0.1:1", "local", "status")
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}
