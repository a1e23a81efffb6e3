// Package gate refuses new connections while the refusal switch is on.
// It shares no state with the rest of the engine.
package gate

import (
	"errors"

	"github.com/elvis2workspace/pg-simula/internal/config"
)

// ErrClientGone marks a client that disconnected before authentication
// completed. The session terminates silently: there is no point reporting
// a failure to a client that is already gone.
var ErrClientGone = errors.New("client disconnected before authentication")

// RefusedError is the authorization failure reported to a live client.
type RefusedError struct{}

func (e *RefusedError) Error() string {
	return "authentication failed by pg-simula"
}

// Gate decides whether new sessions may start.
type Gate struct {
	rt *config.Runtime
}

// New creates a Gate driven by the refuse-connections switch.
func New(rt *config.Runtime) *Gate { return &Gate{rt: rt} }

// Admit returns nil while the switch is off. With the switch on, live
// clients get a RefusedError and already-gone clients get ErrClientGone.
func (g *Gate) Admit(clientGone bool) error {
	if !g.rt.RefuseConnections() {
		return nil
	}
	if clientGone {
		return ErrClientGone
	}
	return &RefusedError{}
}
