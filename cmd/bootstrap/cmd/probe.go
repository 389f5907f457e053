package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/service/bootstrap"
	"github.com/oshokin/serve-bootstrap/internal/service/probe"
)

var (
	// probeAddress overrides the address derived from configuration.
	probeAddress string
	// probeHealthPath is requested over HTTP once the port accepts connections.
	probeHealthPath string
	// probeTimeout bounds the whole probe.
	probeTimeout time.Duration

	// probeCmd checks that the launched server accepts connections.
	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Wait until the server accepts connections on its port.",
		Long: `Connects to the server the bootstrap launches and exits 0 once it answers.

Without --addr the address is derived from configuration: the server host, with
wildcard hosts mapped to loopback, and the value of the port variable.
With --health-path an HTTP GET must also return a 2xx status.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			address := probeAddress
			if address == "" {
				var err error
				if address, err = configuredAddress(); err != nil {
					return err
				}
			}

			return probe.Wait(ctx, &probe.Options{
				Address:    address,
				HealthPath: probeHealthPath,
				Timeout:    probeTimeout,
			})
		},
	}
)

// configuredAddress resolves host:port the way the launch step binds it.
func configuredAddress() (string, error) {
	cfg, err := bootstrap.LoadConfig(newOptions())
	if err != nil {
		return "", err
	}

	port, ok := os.LookupEnv(cfg.Server.PortEnv)
	if !ok || port == "" {
		return "", errext.WithExitCode(
			fmt.Errorf("environment variable %s is not set, pass --addr", cfg.Server.PortEnv),
			errext.InvalidConfig,
		)
	}

	return probe.LocalAddress(cfg.Server.Host, port), nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	probeCmd.Flags().StringVar(&probeAddress, "addr", "", "host:port to probe (default from configuration)")
	probeCmd.Flags().StringVar(&probeHealthPath, "health-path", "", "HTTP path that must answer 2xx, e.g. /api/health")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", probe.DefaultTimeout, "give up after this long")
}
