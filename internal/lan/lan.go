// Package lan resolves the network identity the host presents to remote
// controllers: the LAN-reachable IP address and a free TCP port for the
// control server to bind.
//
// Both answers are best-effort by design. The IP lookup never fails (it
// degrades to the hostname, then loopback), and the port scan is a
// deterministic first-fit walk so behavior is reproducible in tests.
package lan

import (
	"net"
	"os"
	"strconv"

	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
)

// DefaultPortRange is the number of ports scanned above the preferred port.
const DefaultPortRange = 100

// probeAddr is the well-known public address used to select the outbound
// interface. UDP "dialing" sends no packets; it only asks the OS routing
// table which local address it would use.
const probeAddr = "8.8.8.8:80"

// BindFunc attempts to bind a TCP listener on the wildcard address for the
// given port. It exists so tests can substitute deterministic bind results.
type BindFunc func(port int) (net.Listener, error)

// defaultBind binds a real TCP listener on the wildcard address.
func defaultBind(port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
}

// FindFreePort scans [preferred, preferred+rangeSize) in ascending order and
// returns the first port a TCP listener can bind on the wildcard address.
// The listener is released immediately; the caller is expected to re-bind.
// Returns a lan.no_free_port error if nothing in the range binds.
//
// The scan is first-fit, not random: given identical port availability it
// always returns the same port.
func FindFreePort(preferred, rangeSize int) (int, error) {
	return findFreePort(preferred, rangeSize, defaultBind)
}

// findFreePort is the injectable core of FindFreePort.
func findFreePort(preferred, rangeSize int, bind BindFunc) (int, error) {
	if rangeSize <= 0 {
		rangeSize = DefaultPortRange
	}

	for port := preferred; port < preferred+rangeSize; port++ {
		ln, err := bind(port)
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}

	return 0, apperrors.NoFreePort(preferred, preferred+rangeSize)
}

// LocalIP returns the machine's preferred outbound IPv4 address.
// It works by dialing a UDP connection to a public IP (no actual traffic
// sent) and checking which local address was selected by the OS routing
// table. On failure it falls back to resolving the local hostname, and
// finally to loopback. It always returns some address string.
func LocalIP() string {
	conn, err := net.Dial("udp4", probeAddr)
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	return hostnameIP()
}

// hostnameIP resolves the local hostname to an address.
// Used when the routing-table probe fails (e.g., no default route).
func hostnameIP() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "127.0.0.1"
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return "127.0.0.1"
	}
	return pickHostAddr(addrs)
}

// pickHostAddr chooses the most LAN-useful address from a hostname lookup.
// Debian-style hosts files map the hostname to 127.0.1.1, and lookups can
// lead with IPv6 entries, so prefer a non-loopback IPv4 address, then any
// non-loopback address, before settling for loopback.
func pickHostAddr(addrs []string) string {
	var nonLoopback string
	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if ip.To4() != nil {
			return addr
		}
		if nonLoopback == "" {
			nonLoopback = addr
		}
	}
	if nonLoopback != "" {
		return nonLoopback
	}
	return "127.0.0.1"
}
