package main

import (
	"context"
	"time"
)

// RunJobSweeper runs in a loop, routing records whose async media job
// expired unanswered to human review. Expects to be run in a goroutine.
func (srv *Server) RunJobSweeper(ctx context.Context) {
	interval := srv.jobTTL / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := srv.engine.SweepStaleJobs(ctx, time.Now())
			if err != nil {
				srv.logger.Error("stale job sweep failed", "err", err)
				continue
			}
			if swept > 0 {
				srv.logger.Info("swept stale media jobs", "count", swept)
			}
		}
	}
}
