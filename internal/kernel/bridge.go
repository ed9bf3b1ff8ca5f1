package kernel

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
)

//go:embed bridge.py
var bridgeScript string

// BridgeCommand returns the python -c argument that runs the embedded
// bridge. The script travels base64 encoded so it survives remote shells.
func BridgeCommand() string {
	encoded := base64.StdEncoding.EncodeToString([]byte(bridgeScript))
	return fmt.Sprintf(`import base64; exec(base64.b64decode("%s"))`, encoded)
}

// Conn is the byte stream to a running bridge
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

type request struct {
	ID      int    `json:"id"`
	Op      string `json:"op"`
	Command string `json:"command,omitempty"`
	Type    string `json:"type,omitempty"`
	Filter  string `json:"filter,omitempty"`
	Entity  int    `json:"entity,omitempty"`
}

type response struct {
	ID      int    `json:"id"`
	Op      string `json:"op,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	IDs     []int  `json:"ids,omitempty"`
	Name    string `json:"name,omitempty"`
	Planar  bool   `json:"planar,omitempty"`
	Version string `json:"version,omitempty"`
}

// BridgeSession is a Session backed by the python bridge
type BridgeSession struct {
	conn    Conn
	scanner *bufio.Scanner
	logger  *zap.Logger
	mu      sync.Mutex
	nextID  int
	closed  bool
	version string
}

// NewBridgeSession waits for the bridge handshake on conn. A bridge that
// cannot import the kernel binding yields ErrKernelUnavailable.
func NewBridgeSession(conn Conn, logger *zap.Logger) (*BridgeSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	s := &BridgeSession{
		conn:    conn,
		scanner: scanner,
		logger:  logger,
	}

	ready, err := s.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: bridge handshake: %v", domain.ErrKernelUnavailable, err)
	}
	if !ready.OK {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrKernelUnavailable, ready.Error)
	}
	s.version = ready.Version
	logger.Info("Kernel session ready", zap.String("version", ready.Version))
	return s, nil
}

// Version returns the kernel version reported at handshake
func (s *BridgeSession) Version() string {
	return s.version
}

// Cmd implements Session
func (s *BridgeSession) Cmd(ctx context.Context, command string) error {
	s.logger.Debug("kernel cmd", zap.String("command", command))
	_, err := s.call(ctx, request{Op: "cmd", Command: command})
	if err != nil {
		return fmt.Errorf("%w: %q: %w", domain.ErrKernelCommand, command, err)
	}
	return nil
}

// ParseList implements Session
func (s *BridgeSession) ParseList(ctx context.Context, entityType, filter string) ([]int, error) {
	resp, err := s.call(ctx, request{Op: "list", Type: entityType, Filter: " " + strings.TrimSpace(filter)})
	if err != nil {
		return nil, fmt.Errorf("parse %s list %q: %w", entityType, filter, err)
	}
	return resp.IDs, nil
}

// EntityName implements Session
func (s *BridgeSession) EntityName(ctx context.Context, entityType string, id int) (string, error) {
	resp, err := s.call(ctx, request{Op: "name", Type: entityType, Entity: id})
	if err != nil {
		return "", fmt.Errorf("name of %s %d: %w", entityType, id, err)
	}
	return resp.Name, nil
}

// IsPlanar implements Session
func (s *BridgeSession) IsPlanar(ctx context.Context, surfaceID int) (bool, error) {
	resp, err := s.call(ctx, request{Op: "planar", Entity: surfaceID})
	if err != nil {
		return false, fmt.Errorf("planarity of surface %d: %w", surfaceID, err)
	}
	return resp.Planar, nil
}

// Close asks the bridge to exit and closes the connection
func (s *BridgeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.call(context.Background(), request{Op: "close"})

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if cerr := s.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// call sends one request and waits for its reply. The kernel is single
// threaded, so requests are serialized.
func (s *BridgeSession) call(ctx context.Context, req request) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("session closed")
	}

	s.nextID++
	req.ID = s.nextID

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	resp, err := s.read()
	if err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("reply %d out of order, expected %d", resp.ID, req.ID)
	}
	if !resp.OK {
		return nil, errors.New(resp.Error)
	}
	return resp, nil
}

func (s *BridgeSession) read() (*response, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		return nil, io.ErrUnexpectedEOF
	}
	var resp response
	if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return &resp, nil
}
