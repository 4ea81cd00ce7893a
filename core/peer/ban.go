package peer

import (
	"fmt"
	"net"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// MultiaddrToIPNetwork maps a multiaddr to its /32 (IPv4) or /64 (IPv6)
// bucket.
func MultiaddrToIPNetwork(addr string) (string, error) {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return "", err
	}
	if ip4, err := m.ValueForProtocol(ma.P_IP4); err == nil {
		return ip4 + "/32", nil
	}
	if ip6, err := m.ValueForProtocol(ma.P_IP6); err == nil {
		parsed := net.ParseIP(ip6)
		if parsed == nil {
			return "", fmt.Errorf("invalid ip6 address %q", ip6)
		}
		_, network, err := net.ParseCIDR(fmt.Sprintf("%s/64", parsed.String()))
		if err != nil {
			return "", err
		}
		return network.String(), nil
	}
	return "", fmt.Errorf("multiaddr %q has no IP component", addr)
}

// BanList is map<ip_network, ban_until_ms>, pruned of expired entries
// every 1024 inserts.
type BanList struct {
	mu      sync.Mutex
	until   map[string]time.Time
	inserts uint64
}

func NewBanList() *BanList {
	return &BanList{until: make(map[string]time.Time)}
}

// Ban bans network until the given time.
func (b *BanList) Ban(network string, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[network] = until
	b.inserts++
	if b.inserts%1024 == 0 {
		b.pruneLocked(time.Now())
	}
}

// IsBanned reports whether network is currently banned.
func (b *BanList) IsBanned(network string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.until[network]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(b.until, network)
		return false
	}
	return true
}

func (b *BanList) pruneLocked(now time.Time) {
	for network, until := range b.until {
		if now.After(until) {
			delete(b.until, network)
		}
	}
}
