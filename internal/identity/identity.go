// Package identity derives the Snapcast client id of the host the knob runs
// on, for setups that do not configure one.
package identity

import (
	"errors"
	"net"
	"os"
	"sort"
	"strings"
)

// ErrNoHardwareAddr is returned when no usable network interface exists.
var ErrNoHardwareAddr = errors.New("identity: no network interface with a hardware address")

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "beatnik-knob"
	}
	return h
}

// ClientID returns the id snapclient registers with by default: the MAC
// address of the host's first non-loopback interface, lowercase and
// colon-separated.
func ClientID() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	return clientIDFrom(ifaces)
}

// clientIDFrom picks the interface that is up, not loopback, and has a
// 6-byte hardware address. Ties are broken by name so the choice is stable
// across boots (eth0 before wlan0).
func clientIDFrom(ifaces []net.Interface) (string, error) {
	var candidates []net.Interface
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || ifc.Flags&net.FlagUp == 0 {
			continue
		}
		if len(ifc.HardwareAddr) != 6 {
			continue
		}
		candidates = append(candidates, ifc)
	}
	if len(candidates) == 0 {
		return "", ErrNoHardwareAddr
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return strings.ToLower(candidates[0].HardwareAddr.String()), nil
}
