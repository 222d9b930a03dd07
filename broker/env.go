// Package broker implements the client-side half of a ZeroMQ RPC and
// publish/subscribe overlay: it multiplexes in-process client workers
// over a ROUTER and a SUB socket connected out to a set of remote
// peers, maintaining per-peer liveness with an adaptive heartbeat.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/plantd-io/meshbroker/logging"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// GlobalEnv is the state every ClientEnv in a process may share: the
// structured log sink and the Prometheus registry metrics-enabled
// ClientEnvs register against. Nothing here is mutated after
// construction. A nil Registry means metrics-enabled ClientEnvs still
// build their collectors but register them nowhere, so importing this
// package never registers anything on the process default registry as a
// side effect.
type GlobalEnv struct {
	Log      *log.Logger
	Registry *prometheus.Registry
}

// NewGlobalEnv initializes logging per cfg and returns a GlobalEnv built
// on the standard logrus logger. registry is shared by every ClientEnv
// this GlobalEnv creates with metrics enabled; pass nil to opt out of
// registration entirely.
func NewGlobalEnv(cfg logging.Config, registry *prometheus.Registry) *GlobalEnv {
	logging.Initialize(cfg)
	return &GlobalEnv{Log: log.StandardLogger(), Registry: registry}
}

// ClientEnv is one running instance of the broker: its own sockets, its
// own routing tables, its own heartbeat table and ticker. A process may
// run more than one, each against an independent or shared ZMQ context.
type ClientEnv struct {
	global *GlobalEnv
	cfg    *Config

	broker  *clientBroker
	hb      *heartbeatTable
	status  *StatusTracker
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// CreateEnv builds a ClientEnv, connects it to initialPeers and starts
// the heartbeat ticker. RunBroker must be called (typically on its own
// goroutine) to actually service traffic.
func CreateEnv(global *GlobalEnv, cfg *Config, initialPeers []PeerId) (*ClientEnv, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigError("invalid configuration", err)
	}

	add := make(map[PeerId]struct{}, len(initialPeers))
	seen := make([]PeerId, 0, len(initialPeers))
	for _, p := range initialPeers {
		if err := validateConnectionID(p); err != nil {
			return nil, err
		}
		add[p] = struct{}{}
		seen = append(seen, p)
	}
	if a, b, collide := detectConnectionIDCollisions(seen); collide {
		return nil, NewConfigError(fmt.Sprintf("peers %s and %s collide on connection id", a, b), ErrConfig)
	}

	logger := global.Log.WithField("component", "broker")

	var metrics *Metrics
	if cfg.MetricsEnabled {
		var err error
		metrics, err = NewMetrics(cfg.MetricsNamespace, global.Registry)
		if err != nil {
			return nil, err
		}
	}

	status := newStatusTracker()
	hb := newHeartbeatTable()

	b, err := newClientBroker(cfg, hb, logger, metrics, status)
	if err != nil {
		return nil, err
	}
	if len(add) > 0 {
		b.applyUpdatePeers(UpdatePeersReq{Add: add})
	}

	ctx, cancel := context.WithCancel(context.Background())

	env := &ClientEnv{
		global:  global,
		cfg:     cfg,
		broker:  b,
		hb:      hb,
		status:  status,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}

	env.wg.Add(1)
	go func() {
		defer env.wg.Done()
		runTicker(ctx, cfg, hb, b.control)
	}()

	return env, nil
}

// RunBroker blocks servicing traffic until TermEnv is called or an
// invariant violation is detected, in which case it returns a non-nil
// error. Intended to be run on its own goroutine.
func (e *ClientEnv) RunBroker() error {
	return e.broker.run(e.ctx)
}

// TermEnv stops the ticker, closes both sockets with linger=0 and
// releases their readiness adapters. Pending control requests are
// dropped; BiQs of registered clients are not reclaimed, since the
// broker never owns a client's lifecycle. Callers observe silence and
// are expected to shut themselves down.
func (e *ClientEnv) TermEnv() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.broker.close()
	return nil
}

// RegisterClient allocates a BiQ, enqueues a Register control request
// and waits for the broker to apply it, returning the rejection reason
// as an error if another client already owns the id or a message type.
func (e *ClientEnv) RegisterClient(clientID []byte, msgTypes, subs [][]byte) (*BiQ, error) {
	if e.isClosed() {
		return nil, ErrEnvClosed
	}

	biq := NewBiQ()
	result := make(chan error, 1)
	req := controlRequest{register: &registerReq{
		clientID: clientID,
		msgTypes: msgTypes,
		subs:     subs,
		biq:      biq,
		result:   result,
	}}

	select {
	case e.broker.control <- req:
	case <-e.ctx.Done():
		return nil, ErrEnvClosed
	}

	select {
	case err := <-result:
		if err != nil {
			return nil, err
		}
		return biq, nil
	case <-e.ctx.Done():
		return nil, ErrEnvClosed
	}
}

// UpdatePeers enqueues a peer-set change and returns immediately.
func (e *ClientEnv) UpdatePeers(req UpdatePeersReq) {
	if e.isClosed() {
		return
	}
	select {
	case e.broker.control <- controlRequest{updatePeers: &updatePeersCtl{req: req}}:
	case <-e.ctx.Done():
	}
}

// UnregisterClient enqueues removal of clientID's routing entries
// (message-type ownership and subscriptions) and returns immediately.
// The client's BiQ is not reclaimed; whatever is still queued on it is
// simply never drained further, and the caller is expected to stop
// using it.
func (e *ClientEnv) UnregisterClient(clientID []byte) {
	if e.isClosed() {
		return
	}
	select {
	case e.broker.control <- controlRequest{unregister: &unregisterCtl{clientID: clientID}}:
	case <-e.ctx.Done():
	}
}

// GetPeers returns a snapshot of the current peer set.
func (e *ClientEnv) GetPeers() []PeerId {
	return e.hb.snapshotPeers()
}

// GetPeerHealth returns one peer's liveness snapshot.
func (e *ClientEnv) GetPeerHealth(peer PeerId) (PeerHealth, bool) {
	return e.hb.health(peer)
}

// ListPeerHealth returns every connected peer's liveness snapshot.
func (e *ClientEnv) ListPeerHealth() []PeerHealth {
	return e.hb.listHealth()
}

// Status reports the broker's coarse lifecycle state and recent error
// count, for use by a readiness/health endpoint.
func (e *ClientEnv) Status() (status string, errorCount int, lastErr error) {
	return e.status.getStatus(), e.status.getErrorCount(), e.status.getLastError()
}

func (e *ClientEnv) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
