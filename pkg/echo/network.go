package echo

import (
	"context"
	"net"
)

// Network is the host networking primitive used to create listeners.
type Network interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// NetworkFunc adapts a function to the Network interface.
type NetworkFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Listen calls f.
func (f NetworkFunc) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return f(ctx, network, address)
}

type hostNetwork struct {
	lc net.ListenConfig
}

// HostNetwork returns the Network backed by the operating system. On unix
// platforms listening sockets get SO_REUSEADDR so a restarted server can
// rebind while old connections sit in TIME_WAIT.
func HostNetwork() Network {
	return &hostNetwork{lc: net.ListenConfig{Control: listenControl}}
}

func (h *hostNetwork) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return h.lc.Listen(ctx, network, address)
}
