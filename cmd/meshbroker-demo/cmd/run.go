package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/plantd-io/meshbroker/broker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	peerFlags    []string
	clientID     string
	msgTypeFlags []string
	topicFlags   []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the broker, register one demo client and print its traffic",
	RunE:  runDemo,
}

func init() {
	runCmd.Flags().StringSliceVar(&peerFlags, "peer", nil, "peer as host:router_port:pub_port, repeatable")
	runCmd.Flags().StringVar(&clientID, "client-id", "demo", "client id to register")
	runCmd.Flags().StringSliceVar(&msgTypeFlags, "msg-type", nil, "message type this client owns, repeatable")
	runCmd.Flags().StringSliceVar(&topicFlags, "topic", nil, "subscription topic this client wants, repeatable")
}

func runDemo(_ *cobra.Command, _ []string) error {
	peers, err := parsePeers(peerFlags)
	if err != nil {
		return err
	}

	cfg, err := broker.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
	}
	global := broker.NewGlobalEnv(cfg.Log, registry)
	env, err := broker.CreateEnv(global, cfg, peers)
	if err != nil {
		return fmt.Errorf("create broker environment: %w", err)
	}

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- env.RunBroker() }()

	biq, err := env.RegisterClient([]byte(clientID), toFrames(msgTypeFlags), toFrames(topicFlags))
	if err != nil {
		_ = env.TermEnv()
		return fmt.Errorf("register client: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-stop:
			return env.TermEnv()
		case err := <-runErrCh:
			return err
		case <-ticker.C:
			for _, h := range env.ListPeerHealth() {
				global.Log.WithField("peer", h.Peer).
					WithField("liveness", h.Liveness).
					WithField("interval", h.Interval).
					WithField("inactive", h.Inactive).
					Info("peer health")
			}
		case <-poll.C:
			for {
				msg, ok := biq.TryRecv()
				if !ok {
					break
				}
				if msg.Err != nil {
					global.Log.WithError(msg.Err).Warn("send failed")
					continue
				}
				global.Log.WithField("peer", msg.Peer).
					WithField("msg_type", string(msg.MsgType)).
					WithField("frames", len(msg.Payload)).
					Info("received message")
			}
		}
	}
}

func parsePeers(raw []string) ([]broker.PeerId, error) {
	peers := make([]broker.PeerId, 0, len(raw))
	for _, p := range raw {
		parts := strings.Split(p, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid peer %q, want host:router_port:pub_port", p)
		}
		routerPort, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid router_port in %q: %w", p, err)
		}
		pubPort, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid pub_port in %q: %w", p, err)
		}
		peers = append(peers, broker.PeerId{
			Host:       parts[0],
			RouterPort: uint16(routerPort),
			PubPort:    uint16(pubPort),
		})
	}
	return peers, nil
}

func toFrames(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
