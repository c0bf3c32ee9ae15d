package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/config"
	"github.com/dyluth/trellis/internal/printer"
)

var forceInit bool

const starterConfig = `# Trellis configuration
version: "1.0"

# Every record on the blackboard belongs to one user.
user_id: me

# Key namespace; lets several hierarchies share one Redis.
instance: default

redis:
  addr: localhost:6379

# Optional generative capability. Leave endpoint empty to run rule-only.
# The API key is best supplied via TRELLIS_LLM_API_KEY.
llm:
  endpoint: ""
  model: ""
  timeout_seconds: 60

analysis:
  default_depth: balanced

scoring:
  top_n: 5
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter trellis.yml",
	Long: `Create a starter trellis.yml in the current directory.

The generated file documents every setting. Edit user_id and, if you
want coaching notes and deeper analyses, the llm section.

Use --force to overwrite an existing configuration.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing trellis.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultFileName
	}

	if !forceInit {
		if _, err := os.Stat(path); err == nil {
			return printer.Error(
				"configuration already exists",
				fmt.Sprintf("Refusing to overwrite %s.", path),
				[]string{"Re-run with --force to overwrite it"},
			)
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		return printer.Error(
			"failed to write configuration",
			err.Error(),
			nil,
		)
	}

	printer.Success("Created %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Edit user_id in %s\n", path)
	printer.Info("  2. Import your hierarchy:  trellis import hierarchy.yml\n")
	printer.Info("  3. Plan your day:          trellis today\n")

	return nil
}
