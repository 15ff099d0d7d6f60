// Package generator derives cluster-unique IDs for stored rule sets.
package generator

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/bwmarrin/snowflake"
)

// IDbyIP packs an IPv4 address into a uint32. Invalid or IPv6 addresses
// yield 0.
func IDbyIP(ip string) uint32 {
	var id uint32
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return 0
	}
	_ = binary.Read(bytes.NewBuffer(v4), binary.BigEndian, &id)

	return id
}

// NodeID maps an IP to a snowflake node number. An empty ip uses the first
// non-loopback IPv4 address of the host.
func NodeID(ip string) int64 {
	if ip == "" {
		ip = localIP()
	}

	return int64(IDbyIP(ip) % (1 << snowflake.NodeBits))
}

// NewNode returns a snowflake node for this host.
func NewNode(ip string) (*snowflake.Node, error) {
	return snowflake.NewNode(NodeID(ip))
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}

	return ""
}
