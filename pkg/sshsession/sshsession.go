// Package sshsession implements the SSH Session capability (C3): an
// interactive shell over SSHv2 password auth, with a read-until-idle
// contract that lets the fingerprinter and neighbor collector pace their
// command/response exchanges without knowing the remote device's exact
// prompt timing.
package sshsession

import (
	"net"
	"strconv"
	"time"
)

// Defaults from §4.3.
const (
	DefaultIdleTimeout    = 100 * time.Millisecond
	DefaultOverallTimeout = 30 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
)

// Session is the capability surface every phase of the crawler talks to.
// It is deliberately not tied to a concrete transport so tests can supply
// an in-memory transcript player (internal/testssh) instead of a real SSH
// connection.
type Session interface {
	OpenShell() error
	SendLine(line string) error
	ReadUntilIdle(prompt string, overallTimeout, idleTimeout time.Duration) (string, error)
	Close() error
}

// Probe confirms TCP reachability on host:port before any SSH handshake is
// attempted. Callers must gate session creation on this returning true.
func Probe(host string, port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
