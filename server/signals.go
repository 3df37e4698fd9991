package server

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

/*
HandleSignals blocks until SIGTERM or SIGINT arrives, then stops s and
returns:

  - SIGTERM triggers a blocking snapshot broadcast (wait=true) before
    stopping the listener, so every shard's canonical file reflects
    every write made up to that point.
  - SIGINT stops immediately with no snapshot, so writes made since the
    last snapshot are deliberately lost.

Both signals interrupt the accept loop, since Stop() closes the
listener.
*/
func (s *Server) HandleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	switch sig {
	case syscall.SIGTERM:
		s.logger.Info("SIGTERM received, taking final snapshot before shutdown")
		if ok := s.router.BroadcastSnapshot(true); !ok {
			s.logger.Warn("final snapshot broadcast reported a failure")
		}
	case syscall.SIGINT:
		s.logger.Info("SIGINT received, shutting down without snapshotting")
	}

	s.Stop()
}
