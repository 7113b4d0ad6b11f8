package telemetry

import (
	"net"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys recorded on echo spans. Client keys follow the
// OpenTelemetry semantic conventions.
const (
	AttrClientAddr       = "client.address"
	AttrClientPort       = "client.port"
	AttrServerAddr       = "server.address"
	AttrConnectionID     = "echo.connection_id"
	AttrBufferSize       = "echo.buffer_size"
	AttrBytesRead        = "echo.bytes_read"
	AttrNoData           = "echo.no_data"
	AttrTaskName         = "executor.task"
	AttrTaskID           = "executor.task_id"
	AttrNetworkTransport = "network.transport"
)

// Span names.
const (
	SpanEchoServe = "echo.serve"
)

// ClientAddr splits a host:port remote address into client.address and
// client.port attributes. Unparseable input is recorded verbatim.
func ClientAddr(addr string) []attribute.KeyValue {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []attribute.KeyValue{attribute.String(AttrClientAddr, addr)}
	}
	attrs := []attribute.KeyValue{attribute.String(AttrClientAddr, host)}
	if p, err := strconv.Atoi(port); err == nil {
		attrs = append(attrs, attribute.Int(AttrClientPort, p))
	}
	return attrs
}

// ServerAddr returns an attribute for the local listen address
func ServerAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrServerAddr, addr)
}

// ConnectionID returns an attribute for a connection identifier
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrConnectionID, id)
}

// BufferSize returns an attribute for the read buffer capacity
func BufferSize(n int) attribute.KeyValue {
	return attribute.Int(AttrBufferSize, n)
}

// BytesRead returns an attribute for bytes consumed by a read
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// NoData marks a connection closed by the peer before sending anything
func NoData(v bool) attribute.KeyValue {
	return attribute.Bool(AttrNoData, v)
}

// TaskName returns an attribute for an executor task name
func TaskName(name string) attribute.KeyValue {
	return attribute.String(AttrTaskName, name)
}

// TaskID returns an attribute for an executor task identifier
func TaskID(id string) attribute.KeyValue {
	return attribute.String(AttrTaskID, id)
}

// TransportTCP is the network.transport attribute for TCP connections
func TransportTCP() attribute.KeyValue {
	return attribute.String(AttrNetworkTransport, "tcp")
}
