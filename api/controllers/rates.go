package controllers

import (
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/internal/rates"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// RatesReader serves the live rate snapshot.
type RatesReader interface {
	Current() rates.Snapshot
}

// MarketRates returns the gold and silver rates currently in effect. Null
// rates mean nothing has been published for that metal.
func MarketRates(svc RatesReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rates service"))
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, svc.Current())
	}
}
