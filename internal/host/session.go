// Package host is a minimal SQL host the engine embeds into: one session
// per client, one statement at a time, a middleware pipeline with a
// planning stage and a utility stage, and explicit or per-statement
// implicit transactions. The exec command and the end-to-end tests drive
// real statements through it.
package host

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/elvis2workspace/pg-simula/internal/engine"
	"github.com/elvis2workspace/pg-simula/internal/gate"
	"github.com/elvis2workspace/pg-simula/internal/model"
)

// ErrSessionClosed is returned for statements after the session died.
var ErrSessionClosed = errors.New("session is closed")

// Middleware wraps one pipeline stage handler. Implementations must call
// next unless they mean to abort the statement.
type Middleware func(st *Statement, next func() error) error

// Statement is one unit of work moving through the pipeline.
type Statement struct {
	SQL    string
	Tag    string
	Result *Result
}

// Result carries what a completed statement produced.
type Result struct {
	Columns  []string
	Rows     [][]string
	RowCount int64
}

// Session processes statements for one client. Sessions are
// single-threaded; the host may run many of them concurrently, each with
// its own engine instance.
type Session struct {
	id       string
	db       *sql.DB
	tx       *sql.Tx
	explicit bool
	txnEnd   []func()
	plan     []Middleware
	utility  []Middleware
	closed   bool
}

// Open starts a session. The gate is consulted first; a refused client
// never gets a session. A non-nil engine is mounted at both pipeline
// stages.
func Open(db *sql.DB, gt *gate.Gate, eng *engine.Engine) (*Session, error) {
	if gt != nil {
		if err := gt.Admit(false); err != nil {
			return nil, err
		}
	}

	s := &Session{id: uuid.NewString(), db: db}
	if eng != nil {
		ic := eng.Interceptor(s)
		mw := func(st *Statement, next func() error) error {
			return ic(st.Tag, engine.Next(next))
		}
		// Same interception logic at both hook points; they differ only
		// in which statements flow through them.
		s.plan = append(s.plan, mw)
		s.utility = append(s.utility, mw)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Closed reports whether the session has terminated.
func (s *Session) Closed() bool { return s.closed }

// InTransaction reports whether a transaction (explicit or implicit) is
// active. Satisfies engine.Session.
func (s *Session) InTransaction() bool { return s.tx != nil }

// InExplicitTransaction reports whether a BEGIN block is open.
func (s *Session) InExplicitTransaction() bool { return s.tx != nil && s.explicit }

// OnTxnEnd registers fn to run whenever the current transaction ends,
// by commit or by abort. Satisfies engine.Session.
func (s *Session) OnTxnEnd(fn func()) { s.txnEnd = append(s.txnEnd, fn) }

// Exec runs one statement through the pipeline. Statements outside a
// BEGIN block run in an implicit transaction that commits on success and
// rolls back on any failure, so an injected abort leaves no trace of the
// statement. A failure inside a BEGIN block aborts the whole block. A
// fatal injection additionally closes the session.
func (s *Session) Exec(sqlText string) (*Result, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	st := &Statement{SQL: sqlText, Tag: CommandTag(sqlText)}

	implicit := false
	if s.tx == nil && !isTxnControl(st.Tag) {
		tx, err := s.db.Begin()
		if err != nil {
			return nil, err
		}
		s.tx = tx
		implicit = true
	}

	chain := s.utility
	if isPlannable(st.Tag) {
		chain = s.plan
	}
	err := run(chain, st, func() error { return s.execute(st) })

	if implicit && s.tx != nil {
		if err != nil {
			_ = s.endTxn(false)
		} else {
			err = s.endTxn(true)
		}
	} else if err != nil && s.tx != nil {
		_ = s.endTxn(false)
	}

	var killed *model.SessionKilledError
	if errors.As(err, &killed) {
		s.closed = true
	}
	if err != nil {
		return nil, err
	}
	return st.Result, nil
}

// Close rolls back any open transaction and terminates the session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		return s.endTxn(false)
	}
	return nil
}

// run folds the middleware chain around the terminal handler.
func run(chain []Middleware, st *Statement, terminal func() error) error {
	h := terminal
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], h
		h = func() error { return mw(st, next) }
	}
	return h()
}

// execute is the terminal pipeline handler: transaction control and real
// statement execution.
func (s *Session) execute(st *Statement) error {
	switch st.Tag {
	case "BEGIN", "START TRANSACTION":
		if s.tx != nil {
			return errors.New("there is already a transaction in progress")
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		s.tx = tx
		s.explicit = true
		st.Result = &Result{}
		return nil
	case "COMMIT":
		if s.tx == nil {
			st.Result = &Result{}
			return nil
		}
		st.Result = &Result{}
		return s.endTxn(true)
	case "ROLLBACK":
		if s.tx == nil {
			st.Result = &Result{}
			return nil
		}
		st.Result = &Result{}
		return s.endTxn(false)
	}

	// VACUUM cannot run inside a transaction; it gets its own connection
	// while the statement-level transaction stays open for interception.
	if st.Tag == "VACUUM" {
		if _, err := s.db.Exec(st.SQL); err != nil {
			return err
		}
		st.Result = &Result{}
		return nil
	}

	if st.Tag == "SELECT" || st.Tag == "PRAGMA" {
		return s.query(st)
	}

	res, err := s.tx.Exec(st.SQL)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	st.Result = &Result{RowCount: n}
	return nil
}

func (s *Session) query(st *Statement) error {
	rows, err := s.tx.Query(st.SQL)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	result := &Result{Columns: cols}

	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = v.String
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	result.RowCount = int64(len(result.Rows))
	st.Result = result
	return nil
}

// endTxn closes the current transaction and fires the transaction-end
// callbacks, for commit and abort alike.
func (s *Session) endTxn(commit bool) error {
	tx := s.tx
	s.tx = nil
	s.explicit = false

	var err error
	if commit {
		err = tx.Commit()
	} else {
		err = tx.Rollback()
	}
	for _, fn := range s.txnEnd {
		fn()
	}
	return err
}
