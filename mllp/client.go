package mllp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/metric"
	"github.com/andyfu-xl/SEML/pkg/retry"
)

// State represents the connection state of the client
type State int

const (
	// StateDisconnected means no socket is open
	StateDisconnected State = iota
	// StateConnecting means a dial/backoff cycle is in progress
	StateConnecting
	// StateConnected means the TCP session is established
	StateConnected
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ClientConfig holds configuration for the MLLP client
type ClientConfig struct {
	// Address is the host:port of the MLLP message source
	Address string
	// ReadChunkSize bounds each socket read (default 1024)
	ReadChunkSize int
	// DialTimeout bounds a single connection attempt (default 10s)
	DialTimeout time.Duration
	// Backoff controls reconnection pacing. The zero value selects the
	// production default: linear 5s + 5s per attempt, capped at 120s,
	// retrying forever.
	Backoff retry.Config
}

// DefaultBackoff returns the production reconnect policy: linear backoff
// starting at 5s, growing by 5s per failure, capped at 120s, unbounded.
func DefaultBackoff() retry.Config {
	return retry.Linear(5*time.Second, 5*time.Second, 120*time.Second, 0)
}

// Validate checks the configuration for errors
func (c *ClientConfig) Validate() error {
	if c.Address == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"ClientConfig", "Validate", "address is required")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return errors.WrapInvalid(err, "ClientConfig", "Validate", "address format")
	}
	if c.ReadChunkSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"ClientConfig", "Validate", "read chunk size must be positive")
	}
	return nil
}

// Client owns the TCP session to the MLLP message source. It reconnects
// with linear backoff, reassembles partially delivered frames, and emits
// protocol acknowledgments. Receive is self-healing: a broken socket
// triggers a reconnect followed by a single retried read.
//
// Client is not safe for concurrent use; the pipeline is single-threaded
// by protocol design (each message is acknowledged before the next is sent).
type Client struct {
	addr      string
	chunkSize int
	backoff   retry.Config
	dialer    net.Dialer
	logger    *slog.Logger
	metrics   *Metrics

	mu       sync.Mutex
	conn     net.Conn
	state    State
	residual bytes.Buffer // bytes read past the previous frame boundary
}

// NewClient creates an MLLP client. registry may be nil to disable metrics.
func NewClient(cfg ClientConfig, logger *slog.Logger, registry metric.MetricsRegistrar) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadChunkSize == 0 {
		cfg.ReadChunkSize = 1024
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Backoff == (retry.Config{}) {
		cfg.Backoff = DefaultBackoff()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		addr:      cfg.Address,
		chunkSize: cfg.ReadChunkSize,
		backoff:   cfg.Backoff,
		dialer:    net.Dialer{Timeout: cfg.DialTimeout},
		logger:    logger.With("component", "mllp-client"),
		metrics:   newMetrics(registry),
	}, nil
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the TCP session, retrying with linear backoff until
// it succeeds, the context is cancelled, or the bounded attempt budget is
// exhausted. Exhaustion is reported as ErrRetriesExhausted, which callers
// treat as fatal.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.closeLocked()
	c.state = StateConnecting
	c.mu.Unlock()

	err := retry.Do(ctx, c.backoff, func() error {
		c.logger.Info("attempting to connect to MLLP source", "address", c.addr)
		if c.metrics != nil {
			c.metrics.connectionAttempts.Inc()
		}

		conn, dialErr := c.dialer.DialContext(ctx, "tcp", c.addr)
		if dialErr != nil {
			c.logger.Error("MLLP connection attempt failed",
				"address", c.addr, "error", dialErr)
			if c.metrics != nil {
				c.metrics.connectionFailures.Inc()
			}
			return dialErr
		}

		c.mu.Lock()
		c.conn = conn
		c.state = StateConnected
		// Unacknowledged messages are redelivered in full, so any partial
		// frame from the previous session is garbage.
		c.residual.Reset()
		c.mu.Unlock()

		c.logger.Info("connected to MLLP source", "address", c.addr)
		return nil
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		if ctx.Err() != nil {
			return errors.WrapTransient(err, "Client", "Connect", "dial with backoff")
		}
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrRetriesExhausted, err),
			"Client", "Connect", "dial with backoff")
	}
	return nil
}

// Receive reads bounded chunks from the socket until a complete frame
// (terminated by the end-of-block marker) has been accumulated, and returns
// the frame including its delimiters. A clean peer close yields (nil, nil):
// no message, distinct from an error. Transient read failures trigger a
// reconnect and one recursive retry.
func (c *Client) Receive(ctx context.Context) ([]byte, error) {
	return c.receive(ctx, true)
}

func (c *Client) receive(ctx context.Context, allowRetry bool) ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, errors.WrapTransient(errors.ErrNotConnected,
			"Client", "Receive", "socket check")
	}

	// Drop the carriage return trailing the previous frame, if the peer
	// sent it in a later chunk.
	if b := c.residual.Bytes(); len(b) > 0 && b[0] == CarriageReturn {
		c.residual.Next(1)
	}

	chunk := make([]byte, c.chunkSize)
	for {
		if frame := c.extractFrame(); frame != nil {
			if c.metrics != nil {
				c.metrics.framesReceived.Inc()
				c.metrics.lastActivity.SetToCurrentTime()
			}
			return frame, nil
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			c.residual.Write(chunk[:n])
			if c.metrics != nil {
				c.metrics.bytesReceived.Add(float64(n))
			}
			continue
		}
		if err == io.EOF {
			// Peer closed the stream cleanly: no message.
			return nil, nil
		}
		if err == nil {
			continue
		}

		c.logger.Error("error receiving from MLLP source", "error", err)
		if c.metrics != nil {
			c.metrics.readErrors.Inc()
		}
		if !allowRetry {
			return nil, errors.WrapTransient(err, "Client", "Receive", "socket read")
		}

		// Self-heal: reconnect, then retry the read exactly once.
		if connErr := c.Connect(ctx); connErr != nil {
			return nil, connErr
		}
		return c.receive(ctx, false)
	}
}

// extractFrame pops one complete frame from the reassembly buffer,
// consuming the trailing carriage return when it is already buffered.
func (c *Client) extractFrame() []byte {
	data := c.residual.Bytes()
	idx := bytes.IndexByte(data, EndOfBlock)
	if idx < 0 {
		return nil
	}

	take := idx + 1
	if take < len(data) && data[take] == CarriageReturn {
		take++
	}
	frame := make([]byte, take)
	copy(frame, data[:take])
	c.residual.Next(take)
	return frame
}

// Acknowledge sends a protocol acknowledgment for the message currently
// in flight: AA to accept, AE to request retransmission.
func (c *Client) Acknowledge(accept bool) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.WrapTransient(errors.ErrNotConnected,
			"Client", "Acknowledge", "socket check")
	}

	if !accept {
		c.logger.Error("rejecting message, requesting retransmission")
	}

	frame := Encode(BuildAck(accept, time.Now()))
	if _, err := conn.Write(frame); err != nil {
		return errors.WrapTransient(err, "Client", "Acknowledge", "socket write")
	}

	if c.metrics != nil {
		if accept {
			c.metrics.acksSent.Inc()
		} else {
			c.metrics.naksSent.Inc()
		}
	}
	return nil
}

// Close releases the socket; safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		c.logger.Info("closing connection to MLLP source", "address", c.addr)
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}
