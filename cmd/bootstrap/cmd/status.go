package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/repository/record"
	"github.com/oshokin/serve-bootstrap/internal/service/bootstrap"
)

// statusCmd prints the record of the last provisioning run.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the outcome of the last provisioning run as YAML.",
	Long: `Reads the run record kept in the workdir and prints it.

Exits 0 if the last provisioning succeeded and with the recorded exit code of
the failing step otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bootstrap.LoadConfig(newOptions())
		if err != nil {
			return err
		}

		repo := record.NewFileRepository(cfg.ResolvePath(cfg.Record.File))

		last, err := repo.Load(context.Background())
		if err != nil {
			if errors.Is(err, record.ErrNotFound) {
				return errext.WithHint(fmt.Errorf("%s: %w", repo.Path(), err), "run bootstrap at least once")
			}

			return err
		}

		out, err := yaml.Marshal(last)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}

		if _, err = cmd.OutOrStdout().Write(out); err != nil {
			return fmt.Errorf("write run record: %w", err)
		}

		if !last.Succeeded() {
			code := last.ExitCode
			if code == errext.Success {
				code = errext.Failure
			}

			return errext.WithExitCode(fmt.Errorf("last run %s failed", last.RunID), code)
		}

		return nil
	},
}
