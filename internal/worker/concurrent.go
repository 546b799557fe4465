package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// transcribeSegments detects and transcribes every segment on a fixed pool
// of workers reading a bounded channel. In-flight segments are detached from
// ctx so a cancel lets them finish or hit the segment timeout; dispatch stops
// at once. Returns ctx.Err() when cancelled.
func (o *Orchestrator) transcribeSegments(ctx context.Context, segs []model.Segment) ([]model.Fragment, error) {
	limit := max(o.Config.Transcription.ConcurrencyLimit, 1)
	timeout := o.Config.Transcription.SegmentTimeout()

	slog.Info("starting concurrent transcription",
		"segments", len(segs),
		"max_concurrent", limit,
		"rate_limit_rpm", o.Config.Transcription.RateLimitPerMin)

	var (
		frags = make([]model.Fragment, len(segs))
		done  atomic.Int32
		jobs  = make(chan int, limit)
		g     errgroup.Group
	)

	for w := 0; w < limit; w++ {
		g.Go(func() error {
			for i := range jobs {
				frags[i] = o.processSegment(ctx, segs[i], timeout)
				slog.Info("segment completed",
					"segment", fmt.Sprintf("%d/%d", done.Add(1), len(segs)),
					"degraded", frags[i].Degraded)
			}
			return nil
		})
	}

dispatch:
	for i := range segs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	// Workers always return nil: a failed segment degrades its fragment
	// instead of stopping the pool.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frags, nil
}

func (o *Orchestrator) processSegment(ctx context.Context, seg model.Segment, timeout time.Duration) model.Fragment {
	segCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	tag := o.Detector.Detect(segCtx, seg)
	return o.Transcriber.Transcribe(segCtx, seg, tag)
}
