package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/service/bootstrap"
)

var (
	// planWritePath is where the resolved configuration is saved, if set.
	planWritePath string

	// planCmd prints the resolved invocations without running them.
	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved provisioning steps and the server command as YAML.",
		Long: `Resolves configuration the same way a real run does and prints every command
that would be executed, in order, followed by the server launch.

With --write the resolved configuration is saved as YAML, which is a convenient
way to produce a starting bootstrap.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := newOptions()

			cfg, err := bootstrap.LoadConfig(options)
			if err != nil {
				return err
			}

			p, err := bootstrap.BuildPlan(cfg, options.LookupEnv, options.SkipDeps, options.SkipBrowser)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal plan: %w", err)
			}

			if _, err = cmd.OutOrStdout().Write(out); err != nil {
				return fmt.Errorf("write plan: %w", err)
			}

			if planWritePath == "" {
				return nil
			}

			if err = config.Save(planWritePath, cfg); err != nil {
				return fmt.Errorf("save configuration: %w", err)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	planCmd.Flags().StringVar(&planWritePath, "write", "", "save the resolved configuration to this path")
}
