package services

import (
	"context"
	"school-eta-service/internal/domain"
	"school-eta-service/internal/platform/obs"

	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds in-flight ETA computations per batch.
const batchConcurrency = 8

type BusDestination struct {
	BusID       string
	Destination domain.Coordinate
}

// BatchETAResult holds the outcome for one bus. Exactly one of Result and Err is set.
type BatchETAResult struct {
	BusID       string
	Destination domain.Coordinate
	Result      *domain.ETAResult
	Err         error
}

// BatchBusETAs computes ETAs for many buses concurrently. Results keep the
// order of reqs, and one bus failing does not affect the others.
func (e *ETAEngine) BatchBusETAs(
	ctx context.Context,
	tenantID string,
	reqs []BusDestination,
	provider string,
) (_ []BatchETAResult, err error) {
	defer obs.Time(ctx, "eta.BatchBusETAs")(&err)

	out := make([]BatchETAResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)

	for i, r := range reqs {
		i, r := i, r
		out[i] = BatchETAResult{BusID: r.BusID, Destination: r.Destination}

		g.Go(func() error {
			res, err := e.CalculateBusETA(ctx, tenantID, r.BusID, r.Destination, provider)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Result = &res
			return nil
		})
	}

	// Per-bus errors are recorded in out, never returned by the group.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}
