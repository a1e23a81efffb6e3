// Package engine implements the fault-injection core: the rule cache, the
// reentrancy guard, and the interception logic both pipeline hooks share.
package engine

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/elvis2workspace/pg-simula/internal/action"
	"github.com/elvis2workspace/pg-simula/internal/config"
	"github.com/elvis2workspace/pg-simula/internal/model"
	"github.com/elvis2workspace/pg-simula/internal/store"
)

// Session is the slice of the host session the engine needs: whether a
// transaction is genuinely active, and a way to run cleanup when the
// current transaction ends (commit or abort).
type Session interface {
	InTransaction() bool
	OnTxnEnd(fn func())
}

// Next continues the host pipeline with the previously installed handler.
type Next func() error

// Engine is the per-session fault-injection engine. Each session owns an
// independent Engine; the only state shared across sessions is the
// persistent rule relation itself.
type Engine struct {
	rt    *config.Runtime
	reg   *action.Registry
	guard *Guard
	store *store.Store

	// cache is fully replaced on every refresh, never patched.
	cache []model.Rule

	// registered flags the one-time transaction-end callback install.
	registered bool
}

// New builds an Engine over the given database. The engine creates its
// own guard and hands it to its store, so the store's reads and writes
// hold the same latch the interception path checks.
func New(rt *config.Runtime, db *sql.DB, reg *action.Registry) *Engine {
	g := NewGuard()
	return &Engine{
		rt:    rt,
		reg:   reg,
		guard: g,
		store: store.New(db, reg, g),
	}
}

// Guard exposes the session's reentrancy latch.
func (e *Engine) Guard() *Guard { return e.guard }

// Store exposes the engine's rule store, for admin calls that must hold
// the session's guard (upsert, clear).
func (e *Engine) Store() *store.Store { return e.store }

// Interceptor returns the middleware for one interception point. Both of
// the host's hook points (pre-planning and pre-execution) use the same
// logic; they differ only in where the host mounts them. The intercepted
// statement is always forwarded to next unless a dispatched action
// aborts it.
func (e *Engine) Interceptor(sess Session) func(tag string, next Next) error {
	return func(tag string, next Next) error {
		if err := e.Intercept(sess, tag); err != nil {
			return err
		}
		return next()
	}
}

// Intercept runs one refresh-and-dispatch cycle for a statement when the
// transition guard allows it. The reentrancy guard is held for the whole
// cycle and released on every path.
func (e *Engine) Intercept(sess Session, tag string) error {
	if !e.registered {
		sess.OnTxnEnd(e.guard.ForceClear)
		e.registered = true
	}

	if !e.needsDispatch(sess, tag) {
		return nil
	}

	return e.guard.During(func() error {
		if err := e.refresh(); err != nil {
			return err
		}
		return e.dispatch(tag)
	})
}

// needsDispatch is the transition guard: injection must be enabled, the
// reentrancy guard clear, a transaction genuinely active, and the tag
// must not be a transaction-boundary command. The boundary exclusion
// keeps the engine from firing before a transaction has real context.
func (e *Engine) needsDispatch(sess Session, tag string) bool {
	return e.rt.Enabled() &&
		!e.guard.Held() &&
		sess.InTransaction() &&
		!isTxnBoundary(tag)
}

func isTxnBoundary(tag string) bool {
	return strings.EqualFold(tag, "BEGIN") ||
		strings.EqualFold(tag, "START TRANSACTION")
}

// refresh discards the cache and rebuilds it from storage. An absent
// relation is normal (engine not provisioned here) and leaves the cache
// empty; a storage failure aborts the statement that triggered the
// refresh rather than dispatching on stale data.
func (e *Engine) refresh() error {
	e.cache = nil

	installed, err := e.store.Installed()
	if err != nil {
		return err
	}
	if !installed {
		return nil
	}

	rules, err := e.store.ReadAll()
	if err != nil {
		return err
	}
	for _, r := range rules {
		r.Operation = model.Truncate(r.Operation, e.rt.MaxNameLength)
		r.Action = model.Truncate(r.Action, e.rt.MaxNameLength)
		e.cache = append(e.cache, r)
	}
	return nil
}

// dispatch fires the first rule matching tag, if any. At most one action
// fires per intercepted statement.
func (e *Engine) dispatch(tag string) error {
	for _, r := range e.cache {
		if !r.MatchesOperation(tag) {
			continue
		}
		fn, ok := e.reg.Lookup(r.Action)
		if !ok {
			// Actions are validated at write time; a miss here means
			// the relation was modified behind the registry's back.
			return fmt.Errorf("rule for %q names unregistered action %q", r.Operation, r.Action)
		}
		return fn(r.Sec)
	}
	return nil
}
