package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elvis2workspace/pg-simula/internal/action"
)

var addSec int

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().IntVar(&addSec, "sec", 0, "Delay in seconds (used by the wait action)")
}

var addCmd = &cobra.Command{
	Use:   "add <operation> <action>",
	Short: "Declare a fault for an operation",
	Long: "Upserts one rule: the next time a statement with the given\n" +
		"command tag runs with injection enabled, the action fires.\n" +
		"A second add for the same operation replaces the first.\n\n" +
		"Actions: " + strings.Join(action.NewRegistry().Names(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	operation, actionName := args[0], args[1]

	db, rules, err := openRuleStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rules.Upsert(operation, actionName, addSec); err != nil {
		return err
	}
	fmt.Printf("rule set: %s -> %s (sec=%d)\n", operation, actionName, addSec)
	return nil
}
