//go:build unix

package integration

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/spf13/pflag"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/service/bootstrap"
)

const (
	// roleEnv selects what a re-executed test binary does.
	roleEnv = "SERVE_BOOTSTRAP_TEST_ROLE"
	// roleBootstrap runs the real bootstrap with the configuration in configEnv.
	roleBootstrap = "bootstrap"
	// configEnv is the configuration path for roleBootstrap.
	configEnv = "SERVE_BOOTSTRAP_TEST_CONFIG"
	// pidFileEnv is where the fake server writes its PID.
	pidFileEnv = "SERVE_BOOTSTRAP_TEST_PID_FILE"
	// fakeApp is the ASGI app argument the fake server recognizes itself by.
	fakeApp = "tests:app"
)

// TestMain lets the test binary act as the bootstrap or as the server the
// bootstrap execs into.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == fakeApp {
		os.Exit(serveFake(os.Args[2:]))
	}

	if os.Getenv(roleEnv) == roleBootstrap {
		err := bootstrap.Run(context.Background(), &bootstrap.Options{ConfigPath: os.Getenv(configEnv)})
		os.Exit(errext.ExitCode(err))
	}

	os.Exit(m.Run())
}

// serveFake mimics `uvicorn <app> --host H --port P`: it records its PID,
// binds the address and answers /api/health until killed.
func serveFake(args []string) int {
	flags := pflag.NewFlagSet(fakeApp, pflag.ContinueOnError)
	host := flags.String("host", config.DefaultHost, "bind host")
	port := flags.String("port", "", "bind port")

	if err := flags.Parse(args); err != nil {
		return errext.InvalidConfig
	}

	pid := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(os.Getenv(pidFileEnv), pid, config.DefaultFilePermissions); err != nil {
		return errext.Failure
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(*host, *port))
	if err != nil {
		return errext.Failure
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	//nolint:gosec // Test server lives until the test kills it.
	_ = http.Serve(listener, mux)

	return errext.Failure
}
