package kernel

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"cadtoh5m/internal/domain"
)

// SSHTransport runs the bridge on a remote host, typically the workstation
// holding the kernel license.
type SSHTransport struct {
	host       string
	port       int
	user       string
	keyPath    string
	passphrase string
	password   string
	knownHosts string
	cubitPath  string
	python     string
	timeout    time.Duration
	stderr     io.Writer
}

// NewSSHTransport creates a transport for host
func NewSSHTransport(host string, opts ...SSHOption) *SSHTransport {
	t := &SSHTransport{
		host:      host,
		port:      22,
		user:      os.Getenv("USER"),
		cubitPath: DefaultCubitPath,
		python:    "python3",
		timeout:   30 * time.Second,
		stderr:    io.Discard,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// String implements Transport
func (t *SSHTransport) String() string {
	return fmt.Sprintf("ssh(%s@%s:%d %s)", t.user, t.host, t.port, t.cubitPath)
}

// Dial implements Transport
func (t *SSHTransport) Dial(ctx context.Context) (Conn, error) {
	config, err := t.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}

	addr := net.JoinHostPort(t.host, fmt.Sprint(t.port))
	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrKernelUnavailable, addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: SSH handshake with %s: %v", domain.ErrKernelUnavailable, addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Stderr = t.stderr

	stdin, err := session.StdinPipe()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Start(t.remoteCommand()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: start remote bridge: %v", domain.ErrKernelUnavailable, err)
	}

	return &sshConnection{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

// remoteCommand is the shell line that starts the bridge remotely
func (t *SSHTransport) remoteCommand() string {
	return strings.Join([]string{
		shellQuote(t.python), "-u", "-c", shellQuote(BridgeCommand()), shellQuote(t.cubitPath),
	}, " ")
}

func (t *SSHTransport) clientConfig() (*ssh.ClientConfig, error) {
	if t.user == "" {
		return nil, fmt.Errorf("no SSH user configured")
	}

	var auth []ssh.AuthMethod
	if t.keyPath != "" {
		signer, err := t.loadKey()
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if t.password != "" {
		auth = append(auth, ssh.Password(t.password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no SSH key or password configured")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if t.knownHosts != "" {
		cb, err := knownhosts.New(t.knownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            t.user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         t.timeout,
	}, nil
}

func (t *SSHTransport) loadKey() (ssh.Signer, error) {
	data, err := os.ReadFile(t.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	var signer ssh.Signer
	if t.passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(t.passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}

type sshConnection struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func (c *sshConnection) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *sshConnection) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *sshConnection) Close() error {
	c.stdin.Close()
	err := c.session.Wait()
	if cerr := c.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// shellQuote wraps s in single quotes for a POSIX shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
