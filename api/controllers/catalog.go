package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

const maxFilterLen = 64

var newArrivalsLimit = validators.IntQuery{Name: "limit", Default: 24, Min: 1, Max: 100}

// CatalogService is the shopper-facing catalog.
type CatalogService interface {
	Browse(ctx context.Context, viewer string, f catalog.Filter) (*catalog.Listing, error)
	ViewMore(ctx context.Context, viewer string, loggedIn bool, f catalog.Filter) (*catalog.Listing, error)
	NewArrivals(ctx context.Context, limit int) ([]catalog.NewArrivalDTO, error)
}

// CatalogBrowse lists one material's products for the category, sub-category
// and style in the query. Anonymous shoppers always get the preview.
func CatalogBrowse(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		filter, err := filterFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Browse(r.Context(), middleware.UserIDFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// CatalogViewMore expands the current combination for the signed in viewer.
func CatalogViewMore(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		filter, err := filterFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		listing, err := svc.ViewMore(r.Context(), userID, userID != "", filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// CatalogTaxonomy returns the fixed category tree.
func CatalogTaxonomy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, catalog.Taxonomy())
	}
}

// CatalogNewArrivals lists the newest arrivals first.
func CatalogNewArrivals(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		limit, err := newArrivalsLimit.Parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.NewArrivals(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func filterFromRequest(r *http.Request) (catalog.Filter, error) {
	material, err := pathParam(r, "material")
	if err != nil {
		return catalog.Filter{}, err
	}
	q := r.URL.Query()
	main := validators.QueryFilter(q, "category", maxFilterLen)
	if main == "" {
		return catalog.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	filter, err := catalog.NewFilter(material, main,
		validators.QueryFilter(q, "sub", maxFilterLen),
		validators.QueryFilter(q, "style", maxFilterLen))
	if err != nil {
		return catalog.Filter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown material")
	}
	return filter, nil
}
