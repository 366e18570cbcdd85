package matching

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rpattn/advfilter/internal/domain"
	"github.com/rpattn/advfilter/internal/engine"
)

// ErrCancelled is returned when the caller abandons an apply before it
// finishes. A cancelled apply never returns a truncated data set.
var ErrCancelled = errors.New("filter apply cancelled")

const defaultBatchSize = 256

// Service applies filter definitions across record collections. Evaluation is
// stateless per record, so collections are partitioned across workers and the
// passing subset is reassembled in original index order.
type Service struct {
	workers   int
	batchSize int
	now       func() time.Time
}

// NewService creates a matching service sized to the machine.
func NewService() *Service {
	return &Service{
		workers:   runtime.NumCPU(),
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// NewServiceAt creates a matching service with an injected clock, used by
// tests and anywhere relative-date windows must be pinned.
func NewServiceAt(now func() time.Time) *Service {
	service := NewService()
	service.now = now
	return service
}

type outcome struct {
	matched bool
	err     error
}

// Apply evaluates the filter against every record and returns the passing
// subset in original order, with counts, per-group summaries, wall-clock
// timing and the ids of any records skipped for shape mismatches.
//
// The definition is validated against the catalog before any record is
// touched; a blocking issue fails the whole call with a DefinitionError.
// Cancellation is checked between record batches and yields ErrCancelled.
func (s *Service) Apply(ctx context.Context, filter domain.Filter, records []domain.Record, catalog domain.FieldCatalog) (domain.MatchResult, error) {
	if err := engine.Check(filter, catalog); err != nil {
		return domain.MatchResult{}, err
	}

	evaluator := engine.NewAt(s.now())
	start := time.Now()

	outcomes := make([]outcome, len(records))
	if err := s.evaluateAll(ctx, evaluator, filter, records, outcomes); err != nil {
		return domain.MatchResult{}, err
	}

	data := make([]domain.Record, 0, len(records))
	var skipped []domain.SkippedRecord
	for i, o := range outcomes {
		if o.err != nil {
			var evalErr *domain.EvaluationError
			if errors.As(o.err, &evalErr) {
				skipped = append(skipped, domain.SkippedRecord{
					RecordID: records[i].ID,
					Reason:   evalErr.Error(),
				})
				continue
			}
			return domain.MatchResult{}, fmt.Errorf("evaluate record %s: %w", records[i].ID, o.err)
		}
		if o.matched {
			data = append(data, records[i])
		}
	}

	elapsed := time.Since(start).Milliseconds()

	summaries := make([]domain.AppliedFilterSummary, len(filter.Groups))
	for i, group := range filter.Groups {
		summaries[i] = domain.AppliedFilterSummary{
			GroupName:     group.Name,
			CriteriaCount: len(group.Criteria),
			IsActive:      group.IsActive,
		}
	}

	return domain.MatchResult{
		Data:            data,
		Total:           len(records),
		FilteredCount:   len(data),
		ExecutionTimeMs: elapsed,
		AppliedFilters:  summaries,
		Skipped:         skipped,
	}, nil
}

// evaluateAll fills outcomes index for index. Small collections stay on the
// calling goroutine; larger ones are split into contiguous ranges so the
// original ordering survives in the outcome slice regardless of scheduling.
func (s *Service) evaluateAll(ctx context.Context, evaluator *engine.Evaluator, filter domain.Filter, records []domain.Record, outcomes []outcome) error {
	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	if len(records) <= s.batchSize || workers == 1 {
		return s.evaluateRange(ctx, evaluator, filter, records, outcomes, 0, len(records))
	}

	chunk := (len(records) + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(records); lo += chunk {
		hi := lo + chunk
		if hi > len(records) {
			hi = len(records)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			// Errors land in the outcome slots; cancellation is observed
			// once after all workers stop.
			_ = s.evaluateRange(ctx, evaluator, filter, records, outcomes, lo, hi)
		}(lo, hi)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

func (s *Service) evaluateRange(ctx context.Context, evaluator *engine.Evaluator, filter domain.Filter, records []domain.Record, outcomes []outcome, lo, hi int) error {
	for i := lo; i < hi; i++ {
		if (i-lo)%s.batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCancelled, err)
			}
		}
		matched, err := evaluator.EvaluateFilter(filter, records[i])
		outcomes[i] = outcome{matched: matched, err: err}
	}
	return nil
}
