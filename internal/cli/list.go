package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the configured rules",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, rules, err := openRuleStore()
	if err != nil {
		return err
	}
	defer db.Close()

	installed, err := rules.Installed()
	if err != nil {
		return err
	}
	if !installed {
		fmt.Println("no rule relation; run 'simula init' first")
		return nil
	}

	all, err := rules.ReadAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no rules configured")
		return nil
	}

	fmt.Printf("%-30s %-10s %s\n", "OPERATION", "ACTION", "SEC")
	for _, r := range all {
		fmt.Printf("%-30s %-10s %d\n", r.Operation, r.Action, r.Sec)
	}
	return nil
}
