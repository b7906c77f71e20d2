package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConfigMissing = errors.New("required configuration missing")
	ErrRPC           = errors.New("rpc request failed")
	ErrParse         = errors.New("transaction payload not interpretable")
	ErrWSDisconnect  = errors.New("websocket disconnected")
)
