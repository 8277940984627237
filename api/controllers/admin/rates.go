package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/rates"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

type RatesPublisher interface {
	Publish(ctx context.Context, in rates.Input) (rates.Snapshot, error)
}

// PublishRates stores a new rate pair. Every connected instance picks it up
// from the change feed.
func PublishRates(svc RatesPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rates service"))
			return
		}
		var in rates.Input
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := svc.Publish(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snap)
	}
}
