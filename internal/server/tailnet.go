// ABOUTME: Serving the API on a tailnet through an embedded tsnet node
// ABOUTME: Resolves node settings and picks the plain, TLS or Funnel listener from config

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/races/internal/config"
)

// EnvTailscaleAuthKey is consulted when tailscale.auth_key is empty
const EnvTailscaleAuthKey = "TS_AUTHKEY"

// tailnetNode is the part of *tsnet.Server used to open the API listener
type tailnetNode interface {
	Listen(network, addr string) (net.Listener, error)
	ListenTLS(network, addr string) (net.Listener, error)
	ListenFunnel(network, addr string, opts ...tsnet.FunnelOption) (net.Listener, error)
	Close() error
}

var _ tailnetNode = (*tsnet.Server)(nil)

// listenMode is how the API is exposed on the tailnet
type listenMode int

const (
	listenPlain  listenMode = iota // HTTP on :80, tailnet only
	listenTLS                      // HTTPS on :443 with the node's tailnet certificate
	listenFunnel                   // public HTTPS on :443
)

func (m listenMode) String() string {
	switch m {
	case listenTLS:
		return "https"
	case listenFunnel:
		return "funnel"
	default:
		return "http"
	}
}

func (m listenMode) addr() string {
	if m == listenPlain {
		return ":80"
	}
	return ":443"
}

// listenModeFor maps the tailscale section onto a listen mode. Funnel implies HTTPS.
func listenModeFor(cfg config.TailscaleConfig) listenMode {
	switch {
	case cfg.Funnel:
		return listenFunnel
	case cfg.HTTPS:
		return listenTLS
	default:
		return listenPlain
	}
}

// listenTailnet opens the listener for mode. On failure the node is closed.
func listenTailnet(node tailnetNode, mode listenMode) (net.Listener, error) {
	var (
		ln  net.Listener
		err error
	)
	switch mode {
	case listenFunnel:
		ln, err = node.ListenFunnel("tcp", mode.addr())
	case listenTLS:
		ln, err = node.ListenTLS("tcp", mode.addr())
	default:
		ln, err = node.Listen("tcp", mode.addr())
	}
	if err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("tailnet %s listener on %s: %w", mode, mode.addr(), err)
	}
	return ln, nil
}

// tailnetSettings returns the node state directory and auth key. The directory defaults to
// $XDG_DATA_HOME/races/tailscale, falling back to ~/.local/share; the key falls back to TS_AUTHKEY.
func tailnetSettings(cfg config.TailscaleConfig) (stateDir, authKey string, err error) {
	stateDir = cfg.StateDir
	if stateDir == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return "", "", fmt.Errorf("no home directory for tailscale state, set tailscale.state_dir: %w", herr)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		stateDir = filepath.Join(dataDir, "races", "tailscale")
	}

	authKey = cfg.AuthKey
	if authKey == "" {
		authKey = os.Getenv(EnvTailscaleAuthKey)
	}
	if authKey == "" {
		return "", "", errors.New("tailscale.auth_key or " + EnvTailscaleAuthKey + " is required when tailscale is enabled")
	}
	return stateDir, authKey, nil
}

// tailnetIdentity extracts the first tailnet IP and the MagicDNS name of a running node.
func tailnetIdentity(status *ipnstate.Status) (ip, dnsName string) {
	if status == nil {
		return "", ""
	}
	if len(status.TailscaleIPs) > 0 {
		ip = status.TailscaleIPs[0].String()
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	return ip, dnsName
}

// setupTailscaleListener brings a tsnet node up and opens the API listener on it.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, authKey, err := tailnetSettings(tsCfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}

	ip, dnsName := tailnetIdentity(status)
	if ip == "" {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}

	mode := listenModeFor(tsCfg)
	s.logger.Info("tailscale node ready",
		"hostname", tsCfg.Hostname,
		"tailscale_ip", ip,
		"dns_name", dnsName,
		"mode", mode.String(),
		"addr", mode.addr(),
	)
	return listenTailnet(s.tsnetServer, mode)
}
