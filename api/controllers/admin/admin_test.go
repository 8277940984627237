package admin

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/elitejewels-backend/internal/catalog"
	"github.com/angelmondragon/elitejewels-backend/internal/media"
	"github.com/angelmondragon/elitejewels-backend/internal/orders"
	"github.com/angelmondragon/elitejewels-backend/internal/rates"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/pagination"
	"github.com/angelmondragon/elitejewels-backend/pkg/types"
)

type stubCatalog struct {
	product catalog.ProductInput
	image   media.Upload
}

func (s *stubCatalog) ListProducts(_ context.Context, material string, params pagination.Params) (*types.CursorPage[catalog.ProductDTO], error) {
	if material == "bronze" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid material")
	}
	return &types.CursorPage[catalog.ProductDTO]{Items: []catalog.ProductDTO{}}, nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, in catalog.ProductInput, img media.Upload) (*catalog.ProductDTO, error) {
	s.product, s.image = in, img
	if len(img.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	return &catalog.ProductDTO{ID: "p1", Name: in.Name}, nil
}

func (s *stubCatalog) CreateNewArrival(_ context.Context, in catalog.NewArrivalInput, img media.Upload) (*catalog.NewArrivalDTO, error) {
	return &catalog.NewArrivalDTO{ID: "n1", Name: in.Name}, nil
}

func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "ring.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateProductReadsForm(t *testing.T) {
	svc := &stubCatalog{}
	req := multipartRequest(t, map[string]string{
		"name":          " Temple Ring ",
		"material":      "gold",
		"main_category": "rings",
		"min_weight":    "4.5",
	}, []byte("\x89PNG\r\n\x1a\n"))
	resp := httptest.NewRecorder()
	CreateProduct(svc, 1<<20, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.product.Name != "Temple Ring" || svc.product.MainCategory != "rings" {
		t.Fatalf("unexpected input %+v", svc.product)
	}
	if svc.image.Filename != "ring.png" || len(svc.image.Data) == 0 {
		t.Fatalf("image not forwarded: %+v", svc.image.Filename)
	}
}

func TestCreateProductWithoutImageReachesService(t *testing.T) {
	svc := &stubCatalog{}
	resp := httptest.NewRecorder()
	CreateProduct(svc, 1<<20, nil).ServeHTTP(resp, multipartRequest(t, map[string]string{"name": "Ring"}, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.product.Name != "Ring" {
		t.Fatalf("service not called")
	}
}

func TestCreateProductRejectsOversizedImage(t *testing.T) {
	svc := &stubCatalog{}
	resp := httptest.NewRecorder()
	CreateProduct(svc, 8, nil).ServeHTTP(resp, multipartRequest(t, map[string]string{"name": "Ring"}, bytes.Repeat([]byte("x"), 64)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.product.Name != "" {
		t.Fatalf("service should not be called")
	}
}

func TestListProductsBadLimit(t *testing.T) {
	resp := httptest.NewRecorder()
	ListProducts(&stubCatalog{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/products?limit=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubOrders struct {
	patch   orders.Patch
	deleted string
}

func (s *stubOrders) ListOrders(context.Context) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func (s *stubOrders) CreateAdminOrder(_ context.Context, in orders.AdminOrderInput) (*orders.OrderDTO, error) {
	if in.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(map[string]string{"phone": "required"})
	}
	return &orders.OrderDTO{ID: "ORD1"}, nil
}

func (s *stubOrders) UpdateOrder(_ context.Context, id string, patch orders.Patch) (*orders.OrderDTO, error) {
	s.patch = patch
	if patch.Status != nil && *patch.Status == "delivered" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move pending to delivered")
	}
	return &orders.OrderDTO{ID: id}, nil
}

func (s *stubOrders) DeleteOrder(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

func (s *stubOrders) ListProfilePhones(context.Context) ([]string, error) {
	return []string{"+919876543210"}, nil
}

func ordersRouter(svc OrdersService) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", CreateOrder(svc, nil))
	r.Patch("/orders/{orderId}", UpdateOrder(svc, nil))
	r.Delete("/orders/{orderId}", DeleteOrder(svc, nil))
	return r
}

func TestAdminOrderRoutes(t *testing.T) {
	svc := &stubOrders{}
	router := ordersRouter(svc)

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/orders", `{"phone":""}`, http.StatusBadRequest},
		{http.MethodPost, "/orders", `{"phone":"+919876543210"}`, http.StatusCreated},
		{http.MethodPatch, "/orders/ORD1", `{"status":"confirmed","notes":"call first"}`, http.StatusOK},
		{http.MethodPatch, "/orders/ORD1", `{"status":"delivered"}`, http.StatusUnprocessableEntity},
		{http.MethodPatch, "/orders/ORD1", `{"colour":"red"}`, http.StatusBadRequest},
		{http.MethodDelete, "/orders/ORD9", "", http.StatusOK},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body)))
		if resp.Code != tc.want {
			t.Fatalf("%s %s %s: expected %d got %d", tc.method, tc.target, tc.body, tc.want, resp.Code)
		}
	}
	if svc.deleted != "ORD9" {
		t.Fatalf("expected ORD9 deleted, got %q", svc.deleted)
	}
}

type stubRates struct{ in rates.Input }

func (s *stubRates) Publish(_ context.Context, in rates.Input) (rates.Snapshot, error) {
	s.in = in
	return rates.Snapshot{}, nil
}

func TestPublishRatesDecodesBody(t *testing.T) {
	svc := &stubRates{}
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rates", strings.NewReader(`{"gold_rate":"7150","silver_rate":"92"}`))
	PublishRates(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.in.GoldRate != "7150" || svc.in.SilverRate != "92" {
		t.Fatalf("unexpected input %+v", svc.in)
	}
}
