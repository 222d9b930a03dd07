package broker

import czmq "github.com/zeromq/goczmq/v4"

// readinessAdapter turns a socket's edge-triggered readability into a
// condition pollable from the broker loop's fan-in select. The
// underlying poller is edge-triggered over the aggregate of many queued
// messages, so a caller observing tryReady()==true must drain with a
// receive loop rather than a single recv (see loop.go).
type readinessAdapter struct {
	sock    *czmq.Sock
	poller  *czmq.Poller
	gone    bool
}

// newReadinessAdapter wraps sock in its own single-socket poller.
func newReadinessAdapter(sock *czmq.Sock) (*readinessAdapter, error) {
	poller, err := czmq.NewPoller(sock)
	if err != nil {
		return nil, NewError(ErrCodeTransientIO, "failed to create poller", err)
	}
	return &readinessAdapter{sock: sock, poller: poller}, nil
}

// tryReady blocks up to timeoutMs waiting for the socket to become
// readable, returning true if it is. A negative or zero timeout polls
// once without blocking.
func (r *readinessAdapter) tryReady(timeoutMs int) (bool, error) {
	if r.gone {
		return false, ErrSocketGone
	}
	if timeoutMs < 0 {
		timeoutMs = 0
	}
	ready, err := r.poller.Wait(timeoutMs)
	if err != nil {
		return false, NewError(ErrCodeTransientIO, "poller wait failed", err)
	}
	return ready != nil, nil
}

// release idempotently tears down the poller. Safe to call more than
// once; the second and later calls are no-ops.
func (r *readinessAdapter) release() {
	if r.gone {
		return
	}
	r.poller.Destroy()
	r.gone = true
}
