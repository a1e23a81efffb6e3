// simula is a failure simulation tool for SQL-backed services.
package main

import "github.com/elvis2workspace/pg-simula/internal/cli"

func main() {
	cli.Execute()
}
