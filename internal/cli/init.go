package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Provision the rule relation in the configured database",
	Long: "Creates the simula_events relation if it does not exist.\n" +
		"Until this runs, the engine treats the database as having no\n" +
		"rules; interception is a no-op.",
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	db, rules, err := openRuleStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rules.Provision(); err != nil {
		return fmt.Errorf("provision failed: %w", err)
	}
	fmt.Println("simula_events relation ready")
	return nil
}
