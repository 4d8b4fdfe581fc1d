package sshsession

import (
	"bytes"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/topolens/topolens/pkg/crawlerrors"
)

// Client is the password-authenticated SSH Session variant required by
// §4.3: no key lookup by default, with host-key policy injectable for
// environments that want it enforced.
type Client struct {
	addr    string
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

// Dial opens the TCP+SSH handshake and authenticates with a password.
// hostKeyCallback defaults to ssh.InsecureIgnoreHostKey() when nil —
// callers that need verified host keys inject golang.org/x/crypto/ssh/knownhosts.New(...).
func Dial(addr, user, password string, hostKeyCallback ssh.HostKeyCallback, timeout time.Duration) (*Client, error) {
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if isAuthError(err) {
			return nil, crawlerrors.AuthFailureError(addr, err)
		}
		return nil, crawlerrors.TransportError(addr, "ssh dial", err)
	}

	return &Client{addr: addr, client: sshClient}, nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "authentication")
}

// OpenShell requests an interactive shell channel. No pty/tty request is
// made beyond the ssh library's own default, per §6's "SSH wire behavior".
func (c *Client) OpenShell() error {
	session, err := c.client.NewSession()
	if err != nil {
		return crawlerrors.TransportError(c.addr, "opening session", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return crawlerrors.TransportError(c.addr, "stdin pipe", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return crawlerrors.TransportError(c.addr, "stdout pipe", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return crawlerrors.TransportError(c.addr, "requesting shell", err)
	}

	c.session = session
	c.stdin = stdin
	c.stdout = stdout
	return nil
}

// SendLine writes line followed by a newline to the remote shell.
func (c *Client) SendLine(line string) error {
	if _, err := io.WriteString(c.stdin, line+"\n"); err != nil {
		return crawlerrors.TransportError(c.addr, "writing command", err)
	}
	return nil
}

type readResult struct {
	data []byte
	err  error
}

// ReadUntilIdle implements the §4.3 contract. stdout on an *ssh.Session
// has no read-deadline support, so a background reader goroutine feeds a
// channel and the idle/overall timers are driven from the select loop
// instead of SetReadDeadline (the polling idiom pkg/newtlab's
// boot-sequence reader used over a raw net.Conn).
func (c *Client) ReadUntilIdle(prompt string, overallTimeout, idleTimeout time.Duration) (string, error) {
	return readUntilIdle(c.addr, c.stdout, prompt, overallTimeout, idleTimeout)
}

// readUntilIdle is the pure core of the §4.3 contract, split out from
// Client so it can be driven in tests against an arbitrary io.Reader
// instead of a live SSH channel.
func readUntilIdle(addr string, r io.Reader, prompt string, overallTimeout, idleTimeout time.Duration) (string, error) {
	if overallTimeout <= 0 {
		overallTimeout = DefaultOverallTimeout
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	ch := make(chan readResult, 16)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				ch <- readResult{data: chunk}
			}
			if err != nil {
				ch <- readResult{err: err}
				return
			}
		}
	}()

	var out bytes.Buffer
	overall := time.NewTimer(overallTimeout)
	defer overall.Stop()
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case res := <-ch:
			if res.err != nil {
				return out.String(), crawlerrors.TransportError(addr, "channel read", res.err)
			}
			out.Write(res.data)
			if prompt != "" && strings.HasSuffix(rightTrim(out.String()), prompt) {
				return out.String(), nil
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(idleTimeout)
		case <-idle.C:
			return out.String(), nil
		case <-overall.C:
			return out.String(), nil
		}
	}
}

func rightTrim(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}

// Close tears down the shell and the underlying SSH connection.
func (c *Client) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Close()
	}
	if c.client != nil {
		if cerr := c.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
