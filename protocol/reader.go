package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"horcrux/store"
)

/*
ReadRequest parses one request off r. It returns exactly one of:

  - a Request and nil error
  - a zero Request and an error wrapping ErrParseRequest (malformed
    input — the caller should reply ERROR and keep reading)
  - a zero Request and an error wrapping ErrConnection (socket failure
    or an explicit "quit" — the caller should close the connection)
  - a zero Request and ErrIgnorable (an empty or whitespace-only line —
    the caller should loop without replying)

A command line that does not fit in r's buffer is skipped up to its
newline and reported as ErrParseRequest.

Set parsing reads the command line, then reads exactly bytes worth of
data for the payload. The trailing CRLF after the data block is
consumed if present but its absence is tolerated.
*/
func ReadRequest(r *bufio.Reader) (Request, error) {
	raw, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Skip the rest of the oversize line so the next call starts on
		// a fresh one.
		for err == bufio.ErrBufferFull {
			_, err = r.ReadSlice('\n')
		}
		if err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return Request{}, fmt.Errorf("%w: command line exceeds %d bytes", ErrParseRequest, r.Size())
	}
	line := string(raw)
	if err != nil {
		// Whether the read died on the first byte or mid-line, there
		// is no complete command to evaluate: both are connection
		// failures, not parse errors.
		return Request{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	trimmed := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(trimmed) == "" {
		return Request{}, ErrIgnorable
	}

	fields := strings.Fields(trimmed)
	verb := strings.ToLower(fields[0])

	switch verb {
	case "get":
		return parseGet(fields)
	case "set":
		return parseSet(fields, r)
	case "snapshot":
		return parseSnapshot(fields)
	case "quit":
		return Request{}, fmt.Errorf("%w: client quit", ErrConnection)
	default:
		return Request{}, fmt.Errorf("%w: unknown command %q", ErrParseRequest, fields[0])
	}
}

func parseGet(fields []string) (Request, error) {
	if len(fields) != 2 {
		return Request{}, fmt.Errorf("%w: get requires exactly one key", ErrParseRequest)
	}
	if err := validateKey(fields[1]); err != nil {
		return Request{}, err
	}
	return Request{Kind: CmdGet, Key: fields[1]}, nil
}

func parseSnapshot(fields []string) (Request, error) {
	if len(fields) != 1 {
		return Request{}, fmt.Errorf("%w: snapshot takes no arguments", ErrParseRequest)
	}
	return Request{Kind: CmdSnapshot}, nil
}

// parseSet handles "set <key> <flags> <exptime> <bytes>\r\n<data>\r\n".
// exptime is parsed (so a non-numeric exptime is still a protocol
// error) and then discarded.
func parseSet(fields []string, r *bufio.Reader) (Request, error) {
	if len(fields) != 5 {
		return Request{}, fmt.Errorf("%w: set requires key, flags, exptime, and byte count", ErrParseRequest)
	}

	key := fields[1]
	if err := validateKey(key); err != nil {
		return Request{}, err
	}

	flags, err := parseUint32(fields[2])
	if err != nil {
		return Request{}, fmt.Errorf("%w: invalid flags %q", ErrParseRequest, fields[2])
	}

	if _, err := parseUint32(fields[3]); err != nil {
		return Request{}, fmt.Errorf("%w: invalid exptime %q", ErrParseRequest, fields[3])
	}

	dataLen, err := parseUint32(fields[4])
	if err != nil {
		return Request{}, fmt.Errorf("%w: invalid byte count %q", ErrParseRequest, fields[4])
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return Request{}, fmt.Errorf("%w: reading %d-byte payload: %v", ErrConnection, dataLen, err)
	}

	// The trailing CRLF is tolerated but not required: peek without
	// consuming if it's not there so the next ReadRequest call isn't
	// thrown off by bytes that were never sent.
	consumeOptionalCRLF(r)

	return Request{Kind: CmdSet, Key: key, Flags: flags, Data: data}, nil
}

func consumeOptionalCRLF(r *bufio.Reader) {
	peek, err := r.Peek(2)
	if err == nil && string(peek) == "\r\n" {
		_, _ = r.Discard(2)
		return
	}
	peek1, err := r.Peek(1)
	if err == nil && peek1[0] == '\n' {
		_, _ = r.Discard(1)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// validateKey enforces that keys are printable, whitespace-free byte
// sequences up to store.MaxKeyLen bytes. strings.Fields has
// already stripped whitespace around and within the token, so this
// mainly guards length and control bytes.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrParseRequest)
	}
	if len(key) > store.MaxKeyLen {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrParseRequest, store.MaxKeyLen)
	}
	for i := 0; i < len(key); i++ {
		b := key[i]
		if b <= ' ' || b == 0x7f {
			return fmt.Errorf("%w: key contains whitespace or control bytes", ErrParseRequest)
		}
	}
	return nil
}
