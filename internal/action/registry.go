// Package action holds the static table of injectable failure behaviors.
package action

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/elvis2workspace/pg-simula/internal/model"
)

// Built-in action names. Rules are validated against this set at write
// time, so dispatch can treat an unknown name as a consistency fault.
const (
	Error = "error"
	Panic = "panic"
	Wait  = "wait"
	Fatal = "fatal"
)

// Func executes one failure behavior. sec is the rule parameter; only
// the wait action reads it. The error and fatal variants report the
// failure through their return value, panic terminates the process and
// never returns, wait returns nil after the delay.
type Func func(sec int) error

// Registry maps action names to behaviors. Lookup is case-insensitive.
type Registry struct {
	actions map[string]Func
	crash   func(msg string)
	sleep   func(d time.Duration)
}

// Option configures a Registry at creation time.
type Option func(*Registry)

// WithCrash replaces the process-terminating crash function. Tests use
// this to observe the panic action without dying.
func WithCrash(fn func(msg string)) Option {
	return func(r *Registry) { r.crash = fn }
}

// WithSleep replaces the delay function used by the wait action.
func WithSleep(fn func(d time.Duration)) Option {
	return func(r *Registry) { r.sleep = fn }
}

// NewRegistry builds the registry with the four built-in behaviors.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		crash: defaultCrash,
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.actions = map[string]Func{
		Error: errorFunc,
		Panic: r.panicFunc,
		Wait:  r.waitFunc,
		Fatal: fatalFunc,
	}
	return r
}

// Lookup returns the behavior registered under name, case-insensitively.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.actions[strings.ToLower(name)]
	return fn, ok
}

// Known reports whether name is a registered action. Backs write-time
// validation of rules.
func (r *Registry) Known(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// errorFunc aborts the current statement with a recoverable error.
func errorFunc(sec int) error {
	return &model.InjectedError{}
}

// panicFunc terminates the whole host process, simulating a crash.
func (r *Registry) panicFunc(sec int) error {
	r.crash("simulation of PANIC by pg-simula")
	return nil
}

// waitFunc suspends the current session for sec seconds, then lets the
// statement continue normally. Other sessions are unaffected.
func (r *Registry) waitFunc(sec int) error {
	r.sleep(time.Duration(sec) * time.Second)
	return nil
}

// fatalFunc terminates the current session; the statement does not run.
func fatalFunc(sec int) error {
	return &model.SessionKilledError{}
}

func defaultCrash(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
