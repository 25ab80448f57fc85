package assistant

import (
	"context"
	"log/slog"
	"time"
)

const ttlWorkerInterval = 5 * time.Minute

// TranscriptCleaner deletes persisted transcripts idle longer than ttl.
type TranscriptCleaner interface {
	CleanupExpiredTranscripts(ctx context.Context, ttl time.Duration) (int64, error)
}

// StartTTLWorker periodically drops idle sessions from memory and deletes
// their stored transcripts. It stops when ctx is cancelled.
func StartTTLWorker(ctx context.Context, cleaner TranscriptCleaner, sessions *SessionRegistry, ttl time.Duration) {
	startTTLWorker(ctx, cleaner, sessions, ttl, ttlWorkerInterval)
}

func startTTLWorker(ctx context.Context, cleaner TranscriptCleaner, sessions *SessionRegistry, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Transcript TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepTranscripts(ctx, cleaner, sessions, ttl)
			case <-ctx.Done():
				slog.Info("Transcript TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepTranscripts(ctx context.Context, cleaner TranscriptCleaner, sessions *SessionRegistry, ttl time.Duration) {
	if sessions != nil {
		if evicted := sessions.EvictIdle(ttl); evicted > 0 {
			slog.Info("TTL worker evicted idle chat sessions", "count", evicted)
		}
	}
	if cleaner == nil {
		return
	}
	deleted, err := cleaner.CleanupExpiredTranscripts(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to cleanup expired transcripts", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("TTL worker cleaned up expired transcripts", "count", deleted)
	}
}
