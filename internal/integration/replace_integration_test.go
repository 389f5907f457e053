//go:build unix

package integration

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/service/probe"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	return port
}

// TestBootstrap_ReplaceModeBecomesServer provisions, then execs the server in
// place of the bootstrap: the server keeps the bootstrap's PID and accepts
// connections on $PORT.
func TestBootstrap_ReplaceModeBecomesServer(t *testing.T) {
	t.Parallel()

	self, err := os.Executable()
	require.NoError(t, err)

	p := newProject(t, nil)

	cfg := config.Default()
	cfg.Workdir = p.dir
	cfg.Deps.Installer = p.pip
	cfg.Browser.Tool = p.playwright
	cfg.Server.Command = self
	cfg.Server.App = fakeApp
	cfg.Server.Mode = config.ModeReplace
	require.NoError(t, config.Save(p.configPath, cfg))

	port := freePort(t)
	pidFile := filepath.Join(p.dir, "server.pid")

	output, err := os.Create(filepath.Join(p.dir, "bootstrap.out"))
	require.NoError(t, err)

	defer func() {
		_ = output.Close()
	}()

	cmd := exec.Command(self) //nolint:noctx // Killed explicitly below.
	cmd.Env = append(os.Environ(),
		roleEnv+"="+roleBootstrap,
		configEnv+"="+p.configPath,
		pidFileEnv+"="+pidFile,
		"PORT="+port,
	)
	cmd.Stdout = output
	cmd.Stderr = output

	require.NoError(t, cmd.Start())

	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	err = probe.Wait(context.Background(), &probe.Options{
		Address:    probe.LocalAddress(cfg.Server.Host, port),
		HealthPath: "/api/health",
		Timeout:    30 * time.Second,
		Interval:   50 * time.Millisecond,
	})
	if err != nil {
		logged, _ := os.ReadFile(output.Name())
		require.NoError(t, err, string(logged))
	}

	contents, err := os.ReadFile(pidFile)
	require.NoError(t, err)

	serverPID, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, serverPID)

	require.Equal(t, []string{
		"pip install --upgrade pip",
		"pip install -r requirements.txt",
		"playwright install chromium",
	}, p.calls(t))

	_, err = os.Stat(filepath.Join(p.dir, config.DefaultLockFile))
	require.ErrorIs(t, err, os.ErrNotExist)
}
