// Package protocol implements a memcached text-protocol subset: request
// parsing, response serialization, and the error taxonomy below.
package protocol

import "errors"

/*
The sentinels below name an error taxonomy, not Go type names — every
parse/connection failure this package produces wraps one of these with
fmt.Errorf("%w: ...", ...).
*/
var (
	// ErrParseRequest marks malformed client input: the handler replies
	// ERROR and keeps the connection open.
	ErrParseRequest = errors.New("parse request")

	// ErrConnection marks a socket read/write failure or an explicit
	// client quit: the handler closes the connection.
	ErrConnection = errors.New("connection")

	// ErrIgnorable marks an empty read or whitespace-only line: no
	// reply, the handler loops without replying.
	ErrIgnorable = errors.New("ignorable")

	// ErrInternal marks a worker reply type mismatch or a channel
	// closed unexpectedly: the handler closes the connection.
	ErrInternal = errors.New("internal")
)
