package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/driverd/internal/logfields"
)

// NATSOptions configures the NATS controller.
type NATSOptions struct {
	URL           string
	SubjectPrefix string
	ClientName    string
	// ConnectTimeout bounds the initial dial; zero uses the client default.
	ConnectTimeout time.Duration
}

// Event is published for every driver and workspace the controller takes on.
type Event struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Daemon    string    `json:"daemon"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventDriver    = "driver"
	EventWorkspace = "workspace"
)

// NATS announces drivers and workspaces on NATS and answers status requests.
//
// Subjects, with prefix P:
//
//	P.announce.driver     one Event per active driver, published on Start
//	P.announce.workspace  one Event per workspace, on Start and on later loads
//	P.status              request/reply; responds with a JSON Snapshot
type NATS struct {
	*Local
	opts   NATSOptions
	logger *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATS creates the controller. The connection is opened by Start.
func NewNATS(opts NATSOptions, logger *slog.Logger) (*NATS, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "driverd"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{Local: NewLocal(logger), opts: opts, logger: logger}, nil
}

// Subject returns the full subject for suffix.
func (n *NATS) Subject(suffix string) string {
	return n.opts.SubjectPrefix + "." + suffix
}

// LoadWorkspace records the workspace and, once connected, announces it.
func (n *NATS) LoadWorkspace(ctx context.Context, path string) error {
	if err := n.Local.LoadWorkspace(ctx, path); err != nil {
		return err
	}
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return nil
	}
	return n.publish(conn, EventWorkspace, path)
}

// Start connects, subscribes to the status subject and announces what was loaded during boot.
func (n *NATS) Start(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(n.opts.ClientName),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.logger.Info("NATS reconnected", logfields.URL(c.ConnectedUrl()))
		}),
	}
	if n.opts.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(n.opts.ConnectTimeout))
	}

	conn, err := nats.Connect(n.opts.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	sub, err := conn.Subscribe(n.Subject("status"), n.handleStatus)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to status subject: %w", err)
	}

	n.mu.Lock()
	n.conn, n.sub = conn, sub
	n.mu.Unlock()

	if err := n.Local.Start(ctx); err != nil {
		n.release(conn)
		return err
	}

	snap := n.Snapshot()
	for _, name := range snap.Running {
		if err := n.publish(conn, EventDriver, name); err != nil {
			n.logger.Warn("Failed to announce driver", logfields.Driver(name), logfields.Error(err))
		}
	}
	for _, ws := range snap.Workspaces {
		if err := n.publish(conn, EventWorkspace, ws); err != nil {
			n.logger.Warn("Failed to announce workspace", logfields.Workspace(ws), logfields.Error(err))
		}
	}

	n.logger.Info("NATS controller connected",
		logfields.URL(conn.ConnectedUrl()),
		slog.String("subject_prefix", n.opts.SubjectPrefix))
	return nil
}

// Stop drains the connection, if any, and stops local bookkeeping.
func (n *NATS) Stop(ctx context.Context) error {
	n.mu.Lock()
	conn := n.conn
	n.conn, n.sub = nil, nil
	n.mu.Unlock()

	if conn != nil {
		if err := conn.Drain(); err != nil {
			n.logger.Warn("NATS drain failed", logfields.Error(err))
			conn.Close()
		}
	}
	return n.Local.Stop(ctx)
}

// release closes conn and forgets it if it is still the current connection.
func (n *NATS) release(conn *nats.Conn) {
	n.mu.Lock()
	if n.conn == conn {
		n.conn, n.sub = nil, nil
	}
	n.mu.Unlock()
	conn.Close()
}

func (n *NATS) handleStatus(msg *nats.Msg) {
	data, err := json.Marshal(n.Snapshot())
	if err != nil {
		n.logger.Error("Failed to encode status", logfields.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		n.logger.Debug("Status reply failed", logfields.Error(err))
	}
}

func (n *NATS) publish(conn *nats.Conn, kind, name string) error {
	data, err := json.Marshal(n.event(kind, name))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := conn.Publish(n.Subject("announce."+kind), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (n *NATS) event(kind, name string) Event {
	return Event{Kind: kind, Name: name, Daemon: n.opts.ClientName, Timestamp: time.Now().UTC()}
}

var (
	_ Controller = (*Local)(nil)
	_ Controller = (*NATS)(nil)
)
