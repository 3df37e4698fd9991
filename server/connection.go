package server

import (
	"bufio"
	"errors"
	"net"

	"go.uber.org/zap"

	"horcrux/protocol"
	"horcrux/store"
	"horcrux/worker"
)

// maxLineSize bounds the command line bufio.Reader will buffer before
// giving up, protecting the server from an unbounded line with no
// terminator. It does not bound the data block of a set command, whose
// size is given explicitly by the bytes field and read with io.ReadFull.
const maxLineSize = 4 * 1024

/*
handleConnection owns the full lifecycle of a single client connection:
parse one request, dispatch it, write one response, loop — a flat
state machine. It never closes the connection itself except via the
deferred Close; every other exit path is a return.
*/
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, maxLineSize)
	writer := bufio.NewWriter(conn)

	for {
		req, err := protocol.ReadRequest(reader)
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrIgnorable):
				continue
			case errors.Is(err, protocol.ErrParseRequest):
				s.logger.Debug("parse error", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
				if werr := protocol.WriteResponse(writer, protocol.Response{Kind: protocol.RespError}); werr != nil {
					return
				}
				continue
			default:
				// ErrConnection (including an explicit "quit") and any
				// other error close the connection.
				s.logger.Debug("connection closed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
				return
			}
		}

		resp, err := s.execute(req)
		if err != nil {
			return
		}
		if err := protocol.WriteResponse(writer, resp); err != nil {
			return
		}
	}
}

// execute dispatches a parsed Request to the router and translates the
// worker's Response into a protocol.Response. It returns an error only
// when the worker's reply itself signals an unrecoverable state
// (ErrInternal), which closes the connection.
func (s *Server) execute(req protocol.Request) (protocol.Response, error) {
	switch req.Kind {
	case protocol.CmdGet:
		return s.executeGet(req)
	case protocol.CmdSet:
		return s.executeSet(req)
	case protocol.CmdSnapshot:
		return s.executeSnapshot()
	default:
		return protocol.Response{}, protocol.ErrInternal
	}
}

func (s *Server) executeGet(req protocol.Request) (protocol.Response, error) {
	resp := <-s.router.Send(req.Key, worker.Request{Kind: worker.Get, Key: req.Key})
	if resp.Kind != worker.ValueResult {
		return protocol.Response{}, protocol.ErrInternal
	}

	if !resp.Found {
		s.metrics.RecordMiss(s.router.ShardFor(req.Key))
		return protocol.Response{Kind: protocol.RespValueMiss}, nil
	}

	s.metrics.RecordHit(s.router.ShardFor(req.Key))
	return protocol.Response{
		Kind:  protocol.RespValueHit,
		Key:   req.Key,
		Flags: resp.Value.Flags,
		Data:  resp.Value.Data,
	}, nil
}

func (s *Server) executeSet(req protocol.Request) (protocol.Response, error) {
	resp := <-s.router.Send(req.Key, worker.Request{
		Kind:  worker.Set,
		Key:   req.Key,
		Value: store.Value{Flags: req.Flags, Data: req.Data},
	})
	if resp.Kind != worker.Stored {
		return protocol.Response{}, protocol.ErrInternal
	}

	s.metrics.RecordSet(s.router.ShardFor(req.Key))
	return protocol.Response{Kind: protocol.RespStored}, nil
}

// executeSnapshot handles a client "snapshot" command: it broadcasts
// with wait=false and replies SNAPSHOT FINISHED once every shard has
// acknowledged acceptance — the reply wording is a historical
// carryover and does not mean the dump is durable yet.
func (s *Server) executeSnapshot() (protocol.Response, error) {
	s.router.BroadcastSnapshot(false)
	s.metrics.RecordSnapshotRequest()
	return protocol.Response{Kind: protocol.RespSnapshotFinished}, nil
}
