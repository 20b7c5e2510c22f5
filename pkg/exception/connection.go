package exception

import "github.com/yanun0323/errors"

// Connection errors
var (
	ErrConnectionClose = errors.New("connection closed")
	ErrNotConnected    = errors.New("not connected")
)
