package progress

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SummarySink tallies events and logs one line of totals when the run ends.
type SummarySink struct {
	logger *zap.Logger

	mu      sync.Mutex
	synced  int64
	skipped int64
	ignored int64
	failed  int64
	bytes   int64
}

// NewSummarySink builds a sink logging through logger.
func NewSummarySink(logger *zap.Logger) *SummarySink {
	return &SummarySink{logger: logger}
}

// Consume folds a batch into the running totals.
func (s *SummarySink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case StageSynced:
			s.synced++
			s.bytes += evt.Bytes
		case StageSkipped:
			s.skipped++
		case StageIgnored:
			s.ignored++
		case StageFailed:
			s.failed++
		}
	}
	return nil
}

// Close logs the summary.
func (s *SummarySink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("sync summary",
		zap.Int64("synced", s.synced),
		zap.Int64("skipped", s.skipped),
		zap.Int64("ignored", s.ignored),
		zap.Int64("failed", s.failed),
		zap.Int64("bytes", s.bytes),
	)
	return nil
}
