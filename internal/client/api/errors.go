package api

import "errors"

var (
	// ErrTransport network or connection failure
	ErrTransport = errors.New("transport error")

	// ErrProtocol unexpected status or malformed response
	ErrProtocol = errors.New("protocol error")

	// ErrStreamIdle pullStream не прислал ни события, ни heartbeat за отведенное время
	ErrStreamIdle = errors.New("stream idle")
)
