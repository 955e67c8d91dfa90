package reader

import (
	"context"
	"net"
	"os/exec"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// fallbackIface is the last-resort guess when neither the routing
// table nor interface enumeration yields an answer.
const fallbackIface = "en0"

// Detect returns a best-guess name for the default outbound interface.
// It first asks the routing table for the default route's interface,
// then falls back to the first plausible-looking interface (up,
// non-loopback, carrying a unicast address, not a bridge), and finally
// to a fixed name. It never returns an empty string.
func Detect(ctx context.Context) string {
	if iface := defaultRouteIface(ctx); iface != "" {
		return iface
	}
	if iface := firstCandidateIface(ctx); iface != "" {
		return iface
	}
	return fallbackIface
}

// defaultRouteIface parses `route get default` output for the
// "interface:" line. Returns "" when the command or parse fails.
func defaultRouteIface(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "route", "get", "default").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "interface:") {
			fields := strings.Fields(line)
			if len(fields) > 0 {
				return fields[len(fields)-1]
			}
		}
	}
	return ""
}

// firstCandidateIface picks the first enumerated interface that looks
// like a real outbound NIC.
func firstCandidateIface(ctx context.Context) string {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return ""
	}
	return candidateIface(ifaces)
}

// candidateIface returns the first interface that is up, not a bridge,
// and carries a real unicast address.
func candidateIface(ifaces []psnet.InterfaceStat) string {
	for _, i := range ifaces {
		if strings.HasPrefix(i.Name, "br") || strings.HasPrefix(i.Name, "bridge") {
			continue
		}
		if !hasFlag(i.Flags, "up") {
			continue
		}
		for _, a := range i.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil || ip.IsLoopback() || ip.IsUnspecified() {
				continue
			}
			return i.Name
		}
	}
	return ""
}

// hasFlag checks an interface flag list case-insensitively.
func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
