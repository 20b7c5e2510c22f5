package exception

import "github.com/yanun0323/errors"

// Wire protocol errors
var (
	ErrMalformedMessage = errors.New("wire: malformed message")
	ErrFieldCount       = errors.New("wire: unexpected field count")
)
