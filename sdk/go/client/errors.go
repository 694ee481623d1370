package client

import "errors"

var (
	ErrClosed           = errors.New("client: closed")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrBadTransport     = errors.New("client: unsupported transport")
)
