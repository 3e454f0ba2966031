package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener a Server accepts connections on.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is run by main until shutdown. Start blocks; Stop drains
// in-flight work until ctx is done.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}

// Pinger reports whether a backing dependency is reachable. Readiness
// endpoints and the gRPC health checker are driven by it.
type Pinger interface {
	Ping(ctx context.Context) error
}
