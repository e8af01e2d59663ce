package discovery

import (
	"net"
	"sort"
)

// SortIPsByPreference orders ips by preference: global unicast IPv6 first,
// then unique-local IPv6, link-local IPv6, other IPv6, IPv4, with IPv6
// loopback and multicast addresses pushed to the back. All IPv4 addresses,
// loopback and multicast included, rank equally and keep their input
// order. A slice of two or more addresses is returned as a sorted copy; a
// shorter one is returned as is.
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}

	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})

	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	ip = ip.To16()
	if ip == nil {
		return 99
	}

	if ip.To4() != nil {
		return 50
	}

	if isGlobalUnicast(ip) {
		return 0
	}
	if isUniqueLocal(ip) {
		return 1
	}
	if ip.IsLinkLocalUnicast() {
		return 2
	}
	if ip.IsLoopback() {
		return 80
	}
	if ip.IsMulticast() {
		return 90
	}
	return 10
}

// isGlobalUnicast returns true if the IP is a globally routable unicast
// address, excluding private/ULA ranges.
func isGlobalUnicast(ip net.IP) bool {
	if !ip.IsGlobalUnicast() {
		return false
	}
	if isUniqueLocal(ip) {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 10 {
			return false
		}
		if ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31 {
			return false
		}
		if ip4[0] == 192 && ip4[1] == 168 {
			return false
		}
	}
	return true
}

// isUniqueLocal returns true if the IP is an IPv6 Unique Local Address
// (ULA), range fc00::/7.
func isUniqueLocal(ip net.IP) bool {
	ip = ip.To16()
	if ip == nil {
		return false
	}
	return ip[0] == 0xfc || ip[0] == 0xfd
}

// FilterIPv6 returns only IPv6 addresses from the slice.
func FilterIPv6(ips []net.IP) []net.IP {
	var result []net.IP
	for _, ip := range ips {
		if ip.To4() == nil && ip.To16() != nil {
			result = append(result, ip)
		}
	}
	return result
}

// FilterIPv4 returns only IPv4 addresses from the slice.
func FilterIPv4(ips []net.IP) []net.IP {
	var result []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			result = append(result, ip)
		}
	}
	return result
}

// LocalAddresses returns all non-loopback IP addresses on the host, for a
// peer that wants to advertise itself without pinning to one interface.
func LocalAddresses() ([]net.IP, error) {
	var addresses []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && !ip.IsLoopback() {
				addresses = append(addresses, ip)
			}
		}
	}

	return addresses, nil
}
