package identity

import (
	"errors"
	"net"
	"testing"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	hw, err := net.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", s, err)
	}
	return hw
}

func TestClientIDFrom(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "wlan0", Flags: net.FlagUp, HardwareAddr: mustMAC(t, "B8:27:EB:00:00:02")},
		{Name: "eth0", Flags: net.FlagUp, HardwareAddr: mustMAC(t, "2C:CF:67:D4:B1:95")},
		{Name: "docker0", Flags: 0, HardwareAddr: mustMAC(t, "02:42:00:00:00:01")},
	}
	got, err := clientIDFrom(ifaces)
	if err != nil {
		t.Fatalf("clientIDFrom: %v", err)
	}
	if got != "2c:cf:67:d4:b1:95" {
		t.Errorf("clientIDFrom = %q, want eth0's address", got)
	}
}

func TestClientIDFrom_SkipsDownAndOddAddrs(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "eth0", Flags: 0, HardwareAddr: mustMAC(t, "2c:cf:67:d4:b1:95")},
		{Name: "ib0", Flags: net.FlagUp, HardwareAddr: make(net.HardwareAddr, 20)},
		{Name: "wlan0", Flags: net.FlagUp, HardwareAddr: mustMAC(t, "b8:27:eb:00:00:02")},
	}
	got, err := clientIDFrom(ifaces)
	if err != nil {
		t.Fatalf("clientIDFrom: %v", err)
	}
	if got != "b8:27:eb:00:00:02" {
		t.Errorf("clientIDFrom = %q, want wlan0's address", got)
	}
}

func TestClientIDFrom_None(t *testing.T) {
	_, err := clientIDFrom([]net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}})
	if !errors.Is(err, ErrNoHardwareAddr) {
		t.Errorf("err = %v, want ErrNoHardwareAddr", err)
	}
}

func TestGetHostname(t *testing.T) {
	if GetHostname() == "" {
		t.Error("GetHostname returned empty string")
	}
}
