package cli

import (
	"fmt"

	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/pkg/memory"
	"github.com/spf13/cobra"
)

func newOnboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Run the interactive configuration wizard",
		Long: `Run an interactive configuration wizard that writes config.json and seeds
the workspace with USER.md, SOUL.md, IDENTITY.md and memory/MEMORY.md.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(cmd, opts)
		},
	}
}

func runOnboard(cmd *cobra.Command, opts *rootOptions) error {
	out := cmd.OutOrStdout()

	wizard := config.NewWizardWithIO(cmd.InOrStdin(), out)
	cfg, err := wizard.Run()
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, problem := range config.NewValidator().ValidateConfig(cfg) {
		fmt.Fprintf(out, "Warning: %v\n", problem)
	}

	loader := config.NewLoader(opts.cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	created, err := memory.SeedWorkspace(cfg.WorkspacePath())
	if err != nil {
		return fmt.Errorf("failed to seed workspace: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration saved to: %s\n", loader.GetConfigPath())
	for _, name := range created {
		fmt.Fprintf(out, "Created %s\n", name)
	}
	fmt.Fprintln(out, "\nYou can now run: redclaw agent -i")

	return nil
}
