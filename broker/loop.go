package broker

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"
)

// clientBroker owns both sockets and is never touched from any goroutine
// but the one running run(): the single-threaded event loop that
// dispatches control requests, network traffic and client sends.
type clientBroker struct {
	cfg *Config

	router *czmq.Sock
	sub    *czmq.Sock

	routerReady *readinessAdapter
	subReady    *readinessAdapter
	net         *czmq.Poller // combined readiness over router+sub, used only to bound the select's blocking wait

	routing *routingTables
	hb      *heartbeatTable

	peers []PeerId // local mirror of hb's keyset, refreshed on every UpdatePeers/apply

	control chan controlRequest
	rng     *rand.Rand

	logger  *log.Entry
	metrics *Metrics
	status  *StatusTracker

	fatalErr error
}

func newClientBroker(cfg *Config, hb *heartbeatTable, logger *log.Entry, m *Metrics, status *StatusTracker) (*clientBroker, error) {
	router, err := czmq.NewRouter("")
	if err != nil {
		return nil, NewError(ErrCodeTransientIO, "failed to create router socket", err)
	}
	router.SetOption(czmq.SockSetRcvhwm(cfg.SocketRcvHWM))
	router.SetOption(czmq.SockSetSndhwm(cfg.SocketSndHWM))

	sub, err := czmq.NewSub("", "")
	if err != nil {
		router.Destroy()
		return nil, NewError(ErrCodeTransientIO, "failed to create sub socket", err)
	}
	sub.SetOption(czmq.SockSetRcvhwm(cfg.SocketRcvHWM))
	sub.SetOption(czmq.SockSetSubscribe(ReservedHeartbeatTopic))

	net, err := czmq.NewPoller(router, sub)
	if err != nil {
		router.Destroy()
		sub.Destroy()
		return nil, NewError(ErrCodeTransientIO, "failed to create poller", err)
	}

	routerReady, err := newReadinessAdapter(router)
	if err != nil {
		net.Destroy()
		router.Destroy()
		sub.Destroy()
		return nil, err
	}
	subReady, err := newReadinessAdapter(sub)
	if err != nil {
		routerReady.release()
		net.Destroy()
		router.Destroy()
		sub.Destroy()
		return nil, err
	}

	return &clientBroker{
		cfg:         cfg,
		router:      router,
		sub:         sub,
		routerReady: routerReady,
		subReady:    subReady,
		net:         net,
		routing:     newRoutingTables(),
		hb:          hb,
		control:     make(chan controlRequest, cfg.ControlQueueBuffer),
		rng:         rand.New(rand.NewSource(1)),
		logger:      logger,
		metrics:     m,
		status:      status,
	}, nil
}

// close releases both readiness adapters and destroys both sockets with
// linger=0 so shutdown never blocks on undelivered messages. Only the
// adapter release is idempotent; the poller and sockets are destroyed on
// every call, so close must run once (TermEnv guards this).
func (b *clientBroker) close() {
	b.router.SetOption(czmq.SockSetLinger(0))
	b.sub.SetOption(czmq.SockSetLinger(0))
	b.routerReady.release()
	b.subReady.release()
	b.net.Destroy()
	b.router.Destroy()
	b.sub.Destroy()
}

// run is the blocking event loop; it returns when ctx is cancelled or an
// invariant violation is detected, in which case the returned error is
// non-nil and the broker must not be reused.
func (b *clientBroker) run(ctx context.Context) error {
	b.status.setStatus("running")
	defer b.status.setStatus("stopped")

	// Initialization quirk: arm the readiness primitive by reading from
	// both sockets once before the first real select.
	b.drainNetwork()
	if b.fatalErr != nil {
		return b.abort()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		didControl := b.drainControl()
		didNetwork := b.drainNetwork()
		if b.fatalErr != nil {
			return b.abort()
		}
		didOutbound := b.drainOutbound()

		if didControl || didNetwork || didOutbound {
			continue
		}

		if b.blockForWork(ctx) {
			continue
		}
	}
}

// abort logs the fatal condition at error level and returns it; the
// broker never panics or calls os.Exit on its own, leaving process-level
// decisions to the caller of RunBroker.
func (b *clientBroker) abort() error {
	b.status.setStatus("aborted")
	b.status.recordError(b.fatalErr)
	b.logger.WithError(b.fatalErr).Error("broker loop aborting on invariant violation")
	return b.fatalErr
}

// blockForWork waits up to cfg.SelectPollTimeout for network activity,
// returning true if something became ready (the caller loops back
// immediately) or ctx was cancelled. This bounded-latency poll stands in
// for a true unified select over channels and ZMQ fds: goczmq's poller
// only watches sockets, so the control queue and per-client send-queues
// are checked by re-entering the loop rather than being woven into one
// wait primitive.
func (b *clientBroker) blockForWork(ctx context.Context) bool {
	timeoutMs := int(b.cfg.SelectPollTimeout / time.Millisecond)
	sock, err := b.net.Wait(timeoutMs)
	if err != nil {
		b.logger.WithError(err).Warn("poller wait failed")
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return sock != nil
}

// drainControl applies every control request currently queued, without
// blocking. Control requests are applied before any network work so
// routing never runs against stale tables.
func (b *clientBroker) drainControl() bool {
	did := false
	for {
		select {
		case req := <-b.control:
			b.applyControl(req)
			did = true
		default:
			return did
		}
	}
}

func (b *clientBroker) applyControl(req controlRequest) {
	switch {
	case req.register != nil:
		b.applyRegister(req.register)
	case req.updatePeers != nil:
		b.applyUpdatePeers(req.updatePeers.req)
	case req.reconnect != nil:
		b.applyReconnect(req.reconnect.peers)
	case req.unregister != nil:
		b.routing.removeClient(req.unregister.clientID)
	}
}

func (b *clientBroker) applyRegister(r *registerReq) {
	newSubs, err := b.routing.registerClient(r.clientID, r.msgTypes, r.subs, r.biq)
	if err != nil {
		r.result <- err
		return
	}
	for _, s := range newSubs {
		b.sub.SetOption(czmq.SockSetSubscribe(string(s)))
	}
	r.result <- nil
}

func (b *clientBroker) applyUpdatePeers(req UpdatePeersReq) {
	added, removed := b.hb.applyUpdate(b.cfg, req.Add, req.Del, time.Now())
	for _, p := range removed {
		if err := b.router.Disconnect(p.RouterEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("router disconnect failed")
		}
		if err := b.sub.Disconnect(p.PubEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("sub disconnect failed")
		}
	}
	for _, p := range added {
		if err := b.router.Connect(p.RouterEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("router connect failed")
		}
		if err := b.sub.Connect(p.PubEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("sub connect failed")
		}
	}
	b.peers = b.hb.snapshotPeers()
	if b.metrics != nil {
		b.metrics.setPeerCount(len(b.peers))
	}
}

func (b *clientBroker) applyReconnect(peers map[PeerId]struct{}) {
	now := time.Now()
	for p := range peers {
		if err := b.router.Disconnect(p.RouterEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("router disconnect on reconnect failed")
		}
		if err := b.sub.Disconnect(p.PubEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("sub disconnect on reconnect failed")
		}
		if err := b.router.Connect(p.RouterEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("router connect on reconnect failed")
		}
		if err := b.sub.Connect(p.PubEndpoint()); err != nil {
			b.logger.WithError(err).WithField("peer", p).Warn("sub connect on reconnect failed")
		}
	}
	b.hb.onReconnect(b.cfg, peers, now)
	if b.metrics != nil {
		b.metrics.incReconnects(len(peers))
	}
}

// drainNetwork loops each socket's own readiness adapter until it
// reports not-ready, since ZMQ fd readiness is edge-triggered over the
// aggregate of many queued messages: a single ready signal can hide more
// than one pending frame.
func (b *clientBroker) drainNetwork() bool {
	did := false
	for {
		ready, err := b.routerReady.tryReady(0)
		if err != nil {
			b.logger.WithError(err).Warn("router readiness check failed")
			break
		}
		if !ready {
			break
		}
		did = true
		b.handleRouterFrame()
		if b.fatalErr != nil {
			return did
		}
	}
	for {
		ready, err := b.subReady.tryReady(0)
		if err != nil {
			b.logger.WithError(err).Warn("sub readiness check failed")
			break
		}
		if !ready {
			break
		}
		did = true
		b.handleSubFrame()
		if b.fatalErr != nil {
			return did
		}
	}
	return did
}

func (b *clientBroker) handleRouterFrame() {
	raw, err := b.router.RecvMessage()
	if err != nil {
		b.logger.WithError(err).Warn("router recv failed")
		return
	}
	frames := cloneFrames(raw)

	connID, rest := popFrame(frames)
	delim, rest := popFrame(rest)
	msgType, rest := popFrame(rest)
	if connID == nil || msgType == nil || string(delim) != "" {
		b.logger.WithField("frames", len(frames)).Warn("malformed router frame, dropping")
		if b.metrics != nil {
			b.metrics.incMalformed()
		}
		return
	}

	peer, found := findPeerByConnectionID(b.peers, string(connID))
	if found {
		b.hb.onTraffic(b.cfg, peer)
	}

	biq, ok := b.routing.ownerOf(msgType)
	if !ok {
		b.logger.WithField("msg_type", string(msgType)).Warn("no owner for msg_type, dropping")
		if b.metrics != nil {
			b.metrics.incMalformed()
		}
		return
	}
	biq.deliver(Envelope{Peer: peer, HasPeer: found, MsgType: msgType, Payload: rest})
	if b.metrics != nil {
		b.metrics.incRouterIn()
	}
}

func (b *clientBroker) handleSubFrame() {
	raw, err := b.sub.RecvMessage()
	if err != nil {
		b.logger.WithError(err).Warn("sub recv failed")
		return
	}
	frames := cloneFrames(raw)

	topic, rest := popFrame(frames)
	connID, rest := popFrame(rest)
	if topic == nil || connID == nil {
		b.logger.WithField("frames", len(frames)).Warn("malformed sub frame, dropping")
		if b.metrics != nil {
			b.metrics.incMalformed()
		}
		return
	}

	peer, found := findPeerByConnectionID(b.peers, string(connID))
	if found {
		b.hb.onTraffic(b.cfg, peer)
	}

	if string(topic) == ReservedHeartbeatTopic {
		return
	}

	subscribers, ok := b.routing.subscribers(topic)
	if !ok {
		return
	}
	if len(subscribers) == 0 {
		b.fatalErr = NewInvariantViolationError("subscription present with empty subscriber set")
		return
	}
	for _, biq := range subscribers {
		biq.deliver(Envelope{Peer: peer, HasPeer: found, MsgType: topic, Payload: rest})
	}
	if b.metrics != nil {
		b.metrics.incSubIn()
	}
}

// drainOutbound scans every registered client for queued sends and
// writes them to the ROUTER socket. One pass per client per iteration
// keeps any single noisy client from starving the others.
func (b *clientBroker) drainOutbound() bool {
	did := false
	for _, entry := range b.routing.allClients() {
		env, ok := entry.biq.dequeueOutbound()
		if !ok {
			continue
		}
		did = true
		b.sendToPeer(entry, env)
	}
	return did
}

func (b *clientBroker) sendToPeer(entry *clientEntry, env Envelope) {
	peer := env.Peer
	if !env.HasPeer {
		if len(b.peers) == 0 {
			entry.biq.deliver(Envelope{Err: ErrNoPeers})
			return
		}
		peer = b.peers[b.rng.Intn(len(b.peers))]
	} else if _, known := findPeerByConnectionID(b.peers, peer.ConnectionID()); !known {
		b.logger.WithField("peer", peer).Warn("sending to peer outside current peer set")
	}

	frames := make([][]byte, 0, 3+len(env.Payload))
	frames = append(frames, []byte(peer.ConnectionID()), []byte(""), env.MsgType)
	frames = append(frames, env.Payload...)

	if err := b.router.SendMessage(frames); err != nil {
		b.logger.WithError(err).WithField("peer", peer).Warn("router send failed")
		return
	}
	if b.metrics != nil {
		b.metrics.incRouterOut()
	}
}
