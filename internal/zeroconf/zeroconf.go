// Package zeroconf locates a Snapcast server on the LAN via mDNS/DNS-SD so the
// knob works without a hard-coded server address.
package zeroconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceHTTP is advertised by snapserver for its HTTP/WebSocket port.
	ServiceHTTP    = "_snapcast-http._tcp"
	defaultDomain  = "local."
	defaultPath    = "/jsonrpc"
	defaultTimeout = 5 * time.Second
)

// ErrNoServer is returned when browsing finds no matching service.
var ErrNoServer = errors.New("zeroconf: no snapcast server found")

// Browser resolves the WebSocket URL of a Snapcast server.
type Browser struct {
	service  string
	domain   string
	path     string
	instance string // optional instance name filter
	timeout  time.Duration
}

// New creates a Browser. instance may be empty to accept the first server found.
func New(instance string) *Browser {
	return &Browser{
		service:  ServiceHTTP,
		domain:   defaultDomain,
		path:     defaultPath,
		instance: instance,
		timeout:  defaultTimeout,
	}
}

// Resolve browses for the service and returns a ws:// URL for the first
// matching entry. It has the signature of snapcast.ResolveFunc.
func (b *Browser) Resolve(ctx context.Context) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("zeroconf: new resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, b.service, b.domain, entries); err != nil {
		return "", fmt.Errorf("zeroconf: browse %s: %w", b.service, err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ErrNoServer
		case e, ok := <-entries:
			if !ok {
				return "", ErrNoServer
			}
			if b.instance != "" && e.Instance != b.instance {
				continue
			}
			url, ok := entryURL(e, b.path)
			if !ok {
				continue
			}
			slog.Info("zeroconf: found snapcast server",
				"instance", e.Instance,
				"host", e.HostName,
				"url", url,
			)
			return url, nil
		}
	}
}

// entryURL builds the WebSocket URL for an mDNS entry, preferring an IPv4
// address over the advertised host name.
func entryURL(e *zeroconf.ServiceEntry, path string) (string, bool) {
	if e == nil || e.Port <= 0 {
		return "", false
	}
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	case e.HostName != "":
		host = strings.TrimSuffix(e.HostName, ".")
	default:
		return "", false
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(e.Port)) + path, true
}
