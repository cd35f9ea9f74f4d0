package cohort

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/pkg/infra/pool"
)

// AssessAll scores every record on the worker pool. Results are returned in
// record order. A cancelled context stops scheduling and returns its error.
func (c *Cohort) AssessAll(ctx context.Context, p *pool.Pool) ([]clinical.Assessment, error) {
	out := make([]clinical.Assessment, len(c.records))
	if p == nil {
		for i, r := range c.records {
			out[i] = clinical.Assess(r, c.pct)
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i, r := range c.records {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out[i] = clinical.Assess(r, c.pct)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("cohort: schedule assessment %s: %w", r.ID, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
