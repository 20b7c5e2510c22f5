package exception

import "github.com/yanun0323/errors"

// Shared price table errors
var (
	ErrSymbolNotFound = errors.New("store: symbol not found")
	ErrNotOwner       = errors.New("store: handle does not own the segment")
	ErrStoreClosed    = errors.New("store: closed")
)
