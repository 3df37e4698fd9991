package protocol

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadRequestGet(t *testing.T) {
	req, err := ReadRequest(reader("get key\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != CmdGet || req.Key != "key" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestReadRequestGetIsCaseInsensitive(t *testing.T) {
	req, err := ReadRequest(reader("GET key\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != CmdGet {
		t.Fatalf("expected CmdGet, got %v", req.Kind)
	}
}

func TestReadRequestSet(t *testing.T) {
	req, err := ReadRequest(reader("set key 0 0 5\r\nvalue\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != CmdSet || req.Key != "key" || req.Flags != 0 || string(req.Data) != "value" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestReadRequestSetToleratesMissingTrailingCRLF(t *testing.T) {
	req, err := ReadRequest(reader("set key 0 0 5\r\nvalue"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(req.Data) != "value" {
		t.Fatalf("unexpected data: %q", req.Data)
	}
}

func TestReadRequestSetWithFlags(t *testing.T) {
	req, err := ReadRequest(reader("set key 42 0 5\r\nvalue\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Flags != 42 {
		t.Fatalf("expected flags 42, got %d", req.Flags)
	}
}

func TestReadRequestSnapshot(t *testing.T) {
	req, err := ReadRequest(reader("snapshot\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != CmdSnapshot {
		t.Fatalf("expected CmdSnapshot, got %v", req.Kind)
	}
}

func TestReadRequestQuitIsConnectionError(t *testing.T) {
	_, err := ReadRequest(reader("quit\r\n"))
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestReadRequestEmptyLineIsIgnorable(t *testing.T) {
	_, err := ReadRequest(reader("\r\n"))
	if !errors.Is(err, ErrIgnorable) {
		t.Fatalf("expected ErrIgnorable, got %v", err)
	}
}

func TestReadRequestMalformedSetIsParseError(t *testing.T) {
	// Missing the byte-count field.
	_, err := ReadRequest(reader("set k 0 0\r\n"))
	if !errors.Is(err, ErrParseRequest) {
		t.Fatalf("expected ErrParseRequest, got %v", err)
	}
}

func TestReadRequestUnknownCommandIsParseError(t *testing.T) {
	_, err := ReadRequest(reader("bogus a b\r\n"))
	if !errors.Is(err, ErrParseRequest) {
		t.Fatalf("expected ErrParseRequest, got %v", err)
	}
}

func TestReadRequestGetWrongArgCountIsParseError(t *testing.T) {
	_, err := ReadRequest(reader("get\r\n"))
	if !errors.Is(err, ErrParseRequest) {
		t.Fatalf("expected ErrParseRequest, got %v", err)
	}
}

func TestReadRequestNonNumericFlagsIsParseError(t *testing.T) {
	_, err := ReadRequest(reader("set key notanumber 0 5\r\nvalue\r\n"))
	if !errors.Is(err, ErrParseRequest) {
		t.Fatalf("expected ErrParseRequest, got %v", err)
	}
}

func TestReadRequestOversizeKeyIsParseError(t *testing.T) {
	longKey := strings.Repeat("k", 300)
	_, err := ReadRequest(reader("get " + longKey + "\r\n"))
	if !errors.Is(err, ErrParseRequest) {
		t.Fatalf("expected ErrParseRequest, got %v", err)
	}
}

func TestReadRequestEOFIsConnectionError(t *testing.T) {
	_, err := ReadRequest(reader(""))
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}
