package stats

import (
	"context"
	"errors"

	"cinetix/internal/eventbus"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
)

// NewSalesMetricsHandler returns the bus handler that keeps the film
// ranking and per-function counters current. It consumes the sales
// stream in the metrics group, so a crashed worker replays unacked
// entries on restart. Delivery is at-least-once: a replayed sale can
// bump a counter twice, which the leaderboard tolerates.
func NewSalesMetricsHandler(cacheService cache.Service, functions FunctionSource) eventbus.Handler {
	log := logger.GetDefault()

	return func(ctx context.Context, event eventbus.Event) error {
		if event.Type != eventbus.TypeSaleConfirmed {
			return nil
		}

		fid, err := uuid.Parse(event.FunctionID)
		if err != nil {
			// Malformed entries would redeliver forever; drop them.
			log.WithField("function", event.FunctionID).Warn("Dropping sale event with bad function id")
			return nil
		}

		screening, err := functions.GetScreening(ctx, fid)
		if err != nil {
			if errors.Is(err, screenings.ErrScreeningNotFound) {
				log.WithField("function", fid).Warn("Dropping sale event for unknown function")
				return nil
			}
			return err
		}

		tickets := int64(len(event.Seats))
		if tickets == 0 {
			return nil
		}

		if _, err := cacheService.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, float64(tickets), screening.FilmID.String()); err != nil {
			return err
		}
		if _, err := cacheService.HIncrBy(ctx, constants.BuildFunctionStatsKey(fid.String()), "tickets_sold", tickets); err != nil {
			return err
		}
		return nil
	}
}
