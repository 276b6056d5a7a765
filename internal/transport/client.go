package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by Write before Connect succeeds or after the
// connection was dropped
var ErrNotConnected = errors.New("not connected")

// Default timeouts
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// Client is a TCP connection to a receiver's raw input port
type Client struct {
	addr         string
	dialer       net.Dialer
	writeTimeout time.Duration
	logger       *logrus.Logger

	mutex sync.Mutex
	conn  net.Conn
}

// NewClient creates a client for addr ("host:port")
func NewClient(addr string, logger *logrus.Logger) *Client {
	return &Client{
		addr:         addr,
		dialer:       net.Dialer{Timeout: DefaultDialTimeout},
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
}

// Addr returns the remote address
func (c *Client) Addr() string {
	return c.addr
}

// Connect dials the receiver, replacing any existing connection
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}

	c.mutex.Lock()
	old := c.conn
	c.conn = conn
	c.mutex.Unlock()

	if old != nil {
		old.Close()
	}

	c.logger.WithFields(logrus.Fields{
		"addr":  c.addr,
		"local": conn.LocalAddr().String(),
	}).Info("Connected to receiver")

	return nil
}

// Connected reports whether a connection is open
func (c *Client) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn != nil
}

// Write sends data in full. The write deadline is the earlier of the
// context deadline and the client's write timeout. On failure the
// connection is closed and must be re-established with Connect.
func (c *Client) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		c.dropLocked()
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	for len(data) > 0 {
		n, err := c.conn.Write(data)
		if err != nil {
			c.dropLocked()
			return fmt.Errorf("failed to write to %s: %w", c.addr, err)
		}
		data = data[n:]
	}

	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.logger.WithField("addr", c.addr).Warn("Connection to receiver lost")
	}
}

// Close closes the connection if open
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}
