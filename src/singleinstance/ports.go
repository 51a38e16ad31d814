package singleinstance

import (
	"net"
	"strconv"
)

const (
	residentHost = "127.0.0.1"
	DefaultPort  = 49600
)

// normalizePort falls back to DefaultPort outside the unprivileged range.
func normalizePort(port int) int {
	if port < 1024 || port > 65535 {
		return DefaultPort
	}
	return port
}

func residentAddr(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}
