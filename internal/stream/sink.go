package stream

import (
	"context"
	"log"

	"github.com/deepwander/deepwander/internal/store"
)

// Sink receives messages worth keeping from a stream. Implementations must
// not fail the stream: persistence is best effort.
type Sink interface {
	Persist(ctx context.Context, userID int64, threadID, role, content string)
}

// ReportSink is implemented by sinks that also keep the final report of a
// completed workflow run.
type ReportSink interface {
	PersistReport(ctx context.Context, userID int64, threadID, title, content string)
}

// StoreSink writes chat messages to Postgres. Anonymous streams (user id 0)
// are skipped, and write failures are logged and counted but never surfaced
// to the client.
type StoreSink struct {
	Store  *store.Store
	Logger *log.Logger
}

func NewStoreSink(st *store.Store, logger *log.Logger) *StoreSink {
	if logger == nil {
		logger = log.New(log.Writer(), "[STREAM] ", log.LstdFlags)
	}
	return &StoreSink{Store: st, Logger: logger}
}

func (s *StoreSink) Persist(ctx context.Context, userID int64, threadID, role, content string) {
	if userID == 0 {
		return
	}
	if err := s.Store.AppendChat(ctx, userID, threadID, role, content); err != nil {
		persistFailures.Inc()
		s.Logger.Printf("persist %s message for thread %s: %v", role, threadID, err)
	}
}

func (s *StoreSink) PersistReport(ctx context.Context, userID int64, threadID, title, content string) {
	if userID == 0 {
		return
	}
	if err := s.Store.UpsertReportByThread(ctx, userID, threadID, title, content); err != nil {
		persistFailures.Inc()
		s.Logger.Printf("persist report for thread %s: %v", threadID, err)
	}
}
