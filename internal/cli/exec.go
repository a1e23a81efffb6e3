package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elvis2workspace/pg-simula/internal/action"
	"github.com/elvis2workspace/pg-simula/internal/config"
	"github.com/elvis2workspace/pg-simula/internal/engine"
	"github.com/elvis2workspace/pg-simula/internal/gate"
	"github.com/elvis2workspace/pg-simula/internal/host"
	"github.com/elvis2workspace/pg-simula/internal/store"
)

var (
	execStatements []string
	execWatch      bool
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringArrayVarP(&execStatements, "command", "c", nil, "Statement to run (repeatable; default reads stdin)")
	execCmd.Flags().BoolVar(&execWatch, "watch", false, "Reload the config switches when the config file changes")
}

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run statements through a session with the engine installed",
	Long: "Opens one session over the configured database, mounts the\n" +
		"engine at both pipeline stages, and executes the given\n" +
		"statements (or stdin, one per line). Configured faults fire\n" +
		"exactly as they would inside a real host.",
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt := config.NewRuntime(cfg)

	if execWatch {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() { _ = config.Watch(ctx, cfgPath, rt) }()
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := action.NewRegistry()
	sess, err := host.Open(db, gate.New(rt), engine.New(rt, db, reg))
	if err != nil {
		return fmt.Errorf("session refused: %w", err)
	}
	defer sess.Close()

	statements := execStatements
	if len(statements) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			statements = append(statements, line)
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	var failed bool
	for _, stmt := range statements {
		res, err := sess.Exec(stmt)
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", stmt, err)
			if errors.Is(err, host.ErrSessionClosed) || sess.Closed() {
				return fmt.Errorf("session terminated")
			}
			continue
		}
		printResult(stmt, res)
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func printResult(stmt string, res *host.Result) {
	if res == nil {
		return
	}
	if len(res.Columns) > 0 {
		fmt.Println(strings.Join(res.Columns, "\t"))
		for _, row := range res.Rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		fmt.Printf("(%d rows)\n", len(res.Rows))
		return
	}
	fmt.Printf("OK: %s\n", host.CommandTag(stmt))
}
