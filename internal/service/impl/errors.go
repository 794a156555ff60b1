package impl

import "errors"

var (
	ErrEmptyPassword = errors.New("empty password")
	ErrHashFormat    = errors.New("malformed password hash")
	ErrBadIssuer     = errors.New("bad issuer")
	ErrBadAudience   = errors.New("bad audience")
)
