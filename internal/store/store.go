// Package store persists fault-injection rules in the simula_events
// relation and mediates every access the engine makes to it.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/elvis2workspace/pg-simula/internal/action"
	"github.com/elvis2workspace/pg-simula/internal/model"
)

// TableName is the rule relation. Caller-provisioned via Provision.
const TableName = "simula_events"

// Guard is the reentrancy latch held while the store issues its own SQL,
// so the engine never treats its bookkeeping statements as injectable
// operations. Satisfied by engine.Guard.
type Guard interface {
	During(fn func() error) error
}

// nopGuard is used when the store runs outside a session (CLI admin calls).
type nopGuard struct{}

func (nopGuard) During(fn func() error) error { return fn() }

// Store issues reads and writes against the rule relation. Every call
// runs in its own transaction on the store's own connection, independent
// of whatever transaction the surrounding session holds, and holds the
// guard for the duration of the call, released on failure too.
type Store struct {
	db    *sql.DB
	reg   *action.Registry
	guard Guard
}

// New creates a Store. A nil guard means no latch (out-of-session use).
func New(db *sql.DB, reg *action.Registry, guard Guard) *Store {
	if guard == nil {
		guard = nopGuard{}
	}
	return &Store{db: db, reg: reg, guard: guard}
}

// Open opens the sqlite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", path, err)
	}
	return db, nil
}

// Provision creates the rule relation if it does not exist.
func (s *Store) Provision() error {
	return s.guard.During(func() error {
		ddl := fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (operation TEXT PRIMARY KEY, action TEXT, sec INTEGER)",
			TableName)
		if _, err := s.db.Exec(ddl); err != nil {
			return &model.StorageError{Op: "provision", Err: err}
		}
		return nil
	})
}

// Installed probes for the rule relation. A missing relation means the
// engine is simply not provisioned in this database; it is not an error.
func (s *Store) Installed() (bool, error) {
	var installed bool
	err := s.guard.During(func() error {
		var name string
		row := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", TableName)
		switch err := row.Scan(&name); err {
		case nil:
			installed = true
			return nil
		case sql.ErrNoRows:
			return nil
		default:
			return &model.StorageError{Op: "probe", Err: err}
		}
	})
	return installed, err
}

// ReadAll returns every rule in persisted order.
func (s *Store) ReadAll() ([]model.Rule, error) {
	var rules []model.Rule
	err := s.guard.During(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return &model.StorageError{Op: "read", Err: err}
		}
		defer tx.Rollback()

		rows, err := tx.Query(
			fmt.Sprintf("SELECT operation, action, sec FROM %s ORDER BY rowid", TableName))
		if err != nil {
			return &model.StorageError{Op: "read", Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			var r model.Rule
			if err := rows.Scan(&r.Operation, &r.Action, &r.Sec); err != nil {
				return &model.StorageError{Op: "read", Err: err}
			}
			rules = append(rules, r)
		}
		if err := rows.Err(); err != nil {
			return &model.StorageError{Op: "read", Err: err}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Upsert inserts or replaces the rule keyed by operation. The action name
// is validated against the registry first; an unknown name rejects the
// whole call before anything is written.
func (s *Store) Upsert(operation, actionName string, sec int) error {
	if !s.reg.Known(actionName) {
		return &model.UnknownActionError{Action: actionName}
	}

	return s.guard.During(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return &model.StorageError{Op: "upsert", Err: err}
		}
		defer tx.Rollback()

		_, err = tx.Exec(fmt.Sprintf(
			"INSERT INTO %s (operation, action, sec) VALUES (?, ?, ?) "+
				"ON CONFLICT(operation) DO UPDATE SET action = excluded.action, sec = excluded.sec",
			TableName), operation, actionName, sec)
		if err != nil {
			return &model.StorageError{Op: "upsert", Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &model.StorageError{Op: "upsert", Err: err}
		}
		return nil
	})
}

// ClearAll removes every rule.
func (s *Store) ClearAll() error {
	return s.guard.During(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return &model.StorageError{Op: "clear", Err: err}
		}
		defer tx.Rollback()

		if _, err := tx.Exec("DELETE FROM " + TableName); err != nil {
			return &model.StorageError{Op: "clear", Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &model.StorageError{Op: "clear", Err: err}
		}
		return nil
	})
}
