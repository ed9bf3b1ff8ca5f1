package kernel

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
)

// Transport starts the bridge somewhere and hands back its byte stream
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
	String() string
}

// Open starts the bridge over t and completes the handshake
func Open(ctx context.Context, t Transport, logger *zap.Logger) (*BridgeSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Opening kernel session", zap.String("transport", t.String()))

	conn, err := t.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewBridgeSession(conn, logger)
}

// NewOpener returns an Opener bound to t
func NewOpener(t Transport, logger *zap.Logger) Opener {
	return func(ctx context.Context) (Session, error) {
		s, err := Open(ctx, t, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// LocalTransport runs the bridge as a child process
type LocalTransport struct {
	cubitPath string
	python    string
	env       []string
	stderr    io.Writer
}

// NewLocalTransport creates a transport for a kernel installed at cubitPath,
// e.g. /opt/Coreform-Cubit-2021.5/bin/
func NewLocalTransport(cubitPath string, opts ...LocalOption) *LocalTransport {
	t := &LocalTransport{
		cubitPath: cubitPath,
		python:    "python3",
		stderr:    io.Discard,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// String implements Transport
func (t *LocalTransport) String() string {
	return fmt.Sprintf("local(%s)", t.cubitPath)
}

// ResolveKernel checks that the installation directory and the python
// interpreter exist.
func (t *LocalTransport) ResolveKernel() (string, error) {
	info, err := os.Stat(t.cubitPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: cubit path %q is not a directory", domain.ErrKernelUnavailable, t.cubitPath)
	}
	python, err := exec.LookPath(t.python)
	if err != nil {
		return "", fmt.Errorf("%w: python interpreter %q: %v", domain.ErrKernelUnavailable, t.python, err)
	}
	return python, nil
}

// Dial implements Transport
func (t *LocalTransport) Dial(ctx context.Context) (Conn, error) {
	python, err := t.ResolveKernel()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, python, "-u", "-c", BridgeCommand(), t.cubitPath)
	cmd.Env = append(os.Environ(), t.env...)
	cmd.Stderr = t.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start bridge: %v", domain.ErrKernelUnavailable, err)
	}

	return &processConn{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (c *processConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *processConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *processConn) Close() error {
	c.stdin.Close()
	return c.cmd.Wait()
}
