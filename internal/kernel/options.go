package kernel

import (
	"io"
	"time"
)

// LocalOption is a functional option for configuring LocalTransport
type LocalOption func(*LocalTransport)

// WithPython sets the interpreter that can import the cubit binding.
// Cubit ships its own; the default is python3 from PATH.
func WithPython(python string) LocalOption {
	return func(t *LocalTransport) {
		if python != "" {
			t.python = python
		}
	}
}

// WithEnv adds KEY=VALUE entries to the bridge environment
func WithEnv(env ...string) LocalOption {
	return func(t *LocalTransport) {
		t.env = append(t.env, env...)
	}
}

// WithStderr receives everything the kernel prints
func WithStderr(w io.Writer) LocalOption {
	return func(t *LocalTransport) {
		if w != nil {
			t.stderr = w
		}
	}
}

// SSHOption is a functional option for configuring SSHTransport
type SSHOption func(*SSHTransport)

// WithPort sets the SSH port (default 22)
func WithPort(port int) SSHOption {
	return func(t *SSHTransport) {
		if port > 0 {
			t.port = port
		}
	}
}

// WithUser sets the remote login
func WithUser(user string) SSHOption {
	return func(t *SSHTransport) {
		t.user = user
	}
}

// WithKeyFile authenticates with a private key, optionally encrypted
func WithKeyFile(path, passphrase string) SSHOption {
	return func(t *SSHTransport) {
		t.keyPath = path
		t.passphrase = passphrase
	}
}

// WithPassword authenticates with a password
func WithPassword(password string) SSHOption {
	return func(t *SSHTransport) {
		t.password = password
	}
}

// WithKnownHosts verifies the host key against a known_hosts file.
// Without it any host key is accepted.
func WithKnownHosts(path string) SSHOption {
	return func(t *SSHTransport) {
		t.knownHosts = path
	}
}

// WithRemoteCubitPath sets the kernel installation on the remote host
func WithRemoteCubitPath(path string) SSHOption {
	return func(t *SSHTransport) {
		t.cubitPath = path
	}
}

// WithRemotePython sets the interpreter on the remote host
func WithRemotePython(python string) SSHOption {
	return func(t *SSHTransport) {
		if python != "" {
			t.python = python
		}
	}
}

// WithDialTimeout bounds connection setup. Kernel commands themselves are
// never timed out.
func WithDialTimeout(d time.Duration) SSHOption {
	return func(t *SSHTransport) {
		t.timeout = d
	}
}

// WithRemoteStderr receives the remote kernel output
func WithRemoteStderr(w io.Writer) SSHOption {
	return func(t *SSHTransport) {
		if w != nil {
			t.stderr = w
		}
	}
}
