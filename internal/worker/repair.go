package worker

import (
	"context"
	"diet-management-backend/internal/subdoc"
	stdErrors "errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RepairReport summarizes one repair-ids run.
type RepairReport struct {
	Scanned  int64 `json:"scanned"`
	Repaired int64 `json:"repaired"`
	Items    int64 `json:"items"`
	Failed   int64 `json:"failed"`
}

// RepairAll normalizes the item identifiers of every parent document of
// every collection, one parent per task.
func RepairAll(ctx context.Context, colls []*subdoc.Collection, workers int, log zerolog.Logger) (RepairReport, error) {
	var scanned, repaired, items atomic.Int64
	pool := NewWorkerPool(ctx, workers, log)

	submitErr := func() error {
		for _, coll := range colls {
			owners, err := coll.Owners(ctx)
			if err != nil {
				return fmt.Errorf("list %s owners: %w", coll.Layout().Kind, err)
			}
			for _, owner := range owners {
				if err := pool.Submit(ctx, repairTask(coll, owner, &scanned, &repaired, &items, log)); err != nil {
					return err
				}
			}
		}
		return nil
	}()

	waitErr := pool.Shutdown()
	report := RepairReport{
		Scanned:  scanned.Load(),
		Repaired: repaired.Load(),
		Items:    items.Load(),
		Failed:   pool.Failed(),
	}

	if err := stdErrors.Join(submitErr, waitErr); err != nil {
		return report, err
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d parent documents could not be repaired", report.Failed, report.Scanned)
	}
	return report, nil
}

func repairTask(coll *subdoc.Collection, owner primitive.ObjectID, scanned, repaired, items *atomic.Int64, log zerolog.Logger) Task {
	return func(ctx context.Context) error {
		scanned.Add(1)
		n, err := coll.Repair(ctx, owner)
		if stdErrors.Is(err, subdoc.ErrParentNotFound) {
			// deleted since the owner scan
			return nil
		}
		if err != nil {
			return fmt.Errorf("repair %s of %s: %w", coll.Layout().Kind, owner.Hex(), err)
		}
		if n > 0 {
			repaired.Add(1)
			items.Add(int64(n))
			log.Info().
				Str("kind", coll.Layout().Kind).
				Str("owner", owner.Hex()).
				Int("repaired", n).
				Msg("identifiers normalized")
		}
		return nil
	}
}
