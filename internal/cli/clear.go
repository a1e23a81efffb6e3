package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every configured rule",
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	db, rules, err := openRuleStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rules.ClearAll(); err != nil {
		return err
	}
	fmt.Println("all rules cleared")
	return nil
}
