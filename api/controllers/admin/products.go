package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/catalog"
	"github.com/angelmondragon/elitejewels-backend/internal/media"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/pagination"
	"github.com/angelmondragon/elitejewels-backend/pkg/types"
)

const imageField = "image"

// CatalogService is the admin catalog surface.
type CatalogService interface {
	ListProducts(ctx context.Context, material string, params pagination.Params) (*types.CursorPage[catalog.ProductDTO], error)
	CreateProduct(ctx context.Context, in catalog.ProductInput, img media.Upload) (*catalog.ProductDTO, error)
	CreateNewArrival(ctx context.Context, in catalog.NewArrivalInput, img media.Upload) (*catalog.NewArrivalDTO, error)
}

// ListProducts pages through products, optionally for one material.
func ListProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		limit, err := validators.IntQuery{Name: "limit", Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit}.Parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.ListProducts(r.Context(), validators.QueryString(q, "material", 16), pagination.Params{
			Limit:  limit,
			Cursor: validators.QueryString(q, "cursor", 256),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// CreateProduct accepts the multipart product form with its image.
func CreateProduct(svc CatalogService, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		img, err := readImageForm(w, r, maxUpload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in := catalog.ProductInput{
			Name:         validators.FormValue(r, "name"),
			Material:     validators.FormValue(r, "material"),
			MainCategory: validators.FormValue(r, "main_category"),
			SubCategory:  validators.FormValue(r, "sub_category"),
			Style:        validators.FormValue(r, "style"),
			MinWeight:    validators.FormValue(r, "min_weight"),
			ActualWeight: validators.FormValue(r, "actual_weight"),
			ProductCode:  validators.FormValue(r, "product_code"),
		}
		product, err := svc.CreateProduct(r.Context(), in, img)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// CreateNewArrival accepts the multipart new arrival form with its image.
func CreateNewArrival(svc CatalogService, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		img, err := readImageForm(w, r, maxUpload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in := catalog.NewArrivalInput{
			Name:      validators.FormValue(r, "name"),
			MinWeight: validators.FormValue(r, "min_weight"),
			Code:      validators.FormValue(r, "code"),
			Category:  validators.FormValue(r, "category"),
		}
		arrival, err := svc.CreateNewArrival(r.Context(), in, img)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, arrival)
	}
}

// readImageForm parses the form and returns the image. A missing image is
// returned empty so the service reports it alongside the other fields.
func readImageForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (media.Upload, error) {
	if err := validators.ParseMultipart(w, r, maxUpload); err != nil {
		return media.Upload{}, err
	}
	file, err := validators.ReadFormFile(r, imageField, maxUpload)
	if err != nil || file == nil {
		return media.Upload{}, err
	}
	return media.Upload{Filename: file.Filename, Data: file.Data}, nil
}
