package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the effective rule catalog",
	Long: `Show the rule catalog the analysis pipeline will evaluate.

Rules normally come from the blackboard. When none are stored (or the
store is unreachable) the built-in defaults apply and the output says so.

Examples:
  trellis rules`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	catalog := rules.NewCatalog(client)
	all := catalog.All(context.Background())

	if catalog.UsingFallback() {
		printer.Warning("No rules stored - using the built-in defaults.\n\n")
	}

	fmt.Printf("%-25s %-22s %-7s %-7s %-8s\n", "CODE", "APPLIES TO", "WEIGHT", "ACTIVE", "LLM")
	fmt.Printf("%-25s %-22s %-7s %-7s %-8s\n", strings.Repeat("-", 25), strings.Repeat("-", 22), "-------", "-------", "--------")

	for _, r := range all {
		applies := make([]string, 0, len(r.AppliesTo))
		for _, et := range r.AppliesTo {
			applies = append(applies, string(et))
		}

		fmt.Printf("%-25s %-22s %-7.2f %-7v %-8v\n",
			r.Code,
			strings.Join(applies, ","),
			r.BaseWeight,
			r.IsActive,
			r.RequiresLLM,
		)
	}

	fmt.Printf("\n%d rule(s)\n", len(all))
	return nil
}
