package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/opsmith/stackctl/internal/provision"
)

// Probe performs a single readiness check against a target. A nil return
// means the target answered; any error means "not yet".
type Probe interface {
	Check(ctx context.Context, target *provision.Target) error
}

// TCPProbe succeeds when a TCP connection to the target port opens.
type TCPProbe struct {
	DialTimeout time.Duration
}

func (p *TCPProbe) Check(ctx context.Context, target *provision.Target) error {
	dialer := net.Dialer{Timeout: p.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Endpoint())
	if err != nil {
		return fmt.Errorf("tcp connect %s: %w", target.Endpoint(), err)
	}
	return conn.Close()
}

// HTTPProbe succeeds when a GET to the target's path returns a status below
// 500. Redirects and client errors count as alive; only server errors and
// connection failures do not.
type HTTPProbe struct {
	DialTimeout time.Duration
}

func (p *HTTPProbe) Check(ctx context.Context, target *provision.Target) error {
	client := &http.Client{Timeout: p.DialTimeout}

	url := "http://" + target.Endpoint() + target.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("http get %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// SSHProbe succeeds when a full SSH handshake with the deployment key
// completes. This is the default probe: configuration runs over SSH, so a
// target is only ready once it accepts a session.
type SSHProbe struct {
	User        string
	KeyPath     string
	DialTimeout time.Duration
}

func (p *SSHProbe) Check(ctx context.Context, target *provision.Target) error {
	key, err := os.ReadFile(p.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to parse ssh key: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            p.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // freshly provisioned hosts have no known key yet
		Timeout:         p.DialTimeout,
	}

	client, err := ssh.Dial("tcp", target.Endpoint(), cfg)
	if err != nil {
		return fmt.Errorf("ssh handshake %s: %w", target.Endpoint(), err)
	}
	return client.Close()
}
