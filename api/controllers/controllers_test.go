package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/internal/cart"
	"github.com/angelmondragon/elitejewels-backend/internal/catalog"
	"github.com/angelmondragon/elitejewels-backend/internal/favorites"
	"github.com/angelmondragon/elitejewels-backend/internal/identity"
	"github.com/angelmondragon/elitejewels-backend/internal/orders"
	"github.com/angelmondragon/elitejewels-backend/internal/rates"
	pkgAuth "github.com/angelmondragon/elitejewels-backend/pkg/auth"
	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
)

func withShopper(req *http.Request) (*http.Request, uuid.UUID) {
	userID := uuid.New()
	claims := &pkgAuth.AccessTokenClaims{UserID: userID, Phone: "+919876543210", Role: enums.RoleCustomer}
	return req.WithContext(middleware.WithClaims(req.Context(), claims)), userID
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}

type claimsSource struct {
	claims *pkgAuth.AccessTokenClaims
	email  string
}

func (c claimsSource) CurrentSession(context.Context) (*identity.SessionUser, error) {
	if c.claims == nil {
		return nil, nil
	}
	email := c.email
	return &identity.SessionUser{ID: c.claims.UserID.String(), Email: &email, Phone: &c.claims.Phone}, nil
}

func (claimsSource) SignOut(context.Context) error { return nil }

func (claimsSource) OnAuthStateChange(context.Context, func(context.Context, identity.AuthEvent)) (func(), error) {
	return nil, errors.New("no session to watch")
}

func testStores(email string) SessionStoreFactory {
	return func(claims *pkgAuth.AccessTokenClaims) *identity.Store {
		return identity.NewStore(claimsSource{claims: claims, email: email}, nil, nil)
	}
}

type stubCatalog struct {
	viewer   string
	loggedIn bool
	filter   catalog.Filter
}

func (s *stubCatalog) Browse(_ context.Context, viewer string, f catalog.Filter) (*catalog.Listing, error) {
	s.viewer, s.filter = viewer, f
	return &catalog.Listing{Key: f.Key(), Items: []catalog.ProductDTO{}}, nil
}

func (s *stubCatalog) ViewMore(_ context.Context, viewer string, loggedIn bool, f catalog.Filter) (*catalog.Listing, error) {
	s.viewer, s.loggedIn, s.filter = viewer, loggedIn, f
	if !loggedIn {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "log in to view the full collection")
	}
	return &catalog.Listing{Key: f.Key(), Expanded: true}, nil
}

func (s *stubCatalog) NewArrivals(context.Context, int) ([]catalog.NewArrivalDTO, error) {
	return []catalog.NewArrivalDTO{{ID: "n1", Name: "Lotus"}}, nil
}

func catalogRouter(svc CatalogService) http.Handler {
	r := chi.NewRouter()
	r.Get("/catalog/{material}", CatalogBrowse(svc, nil))
	r.Post("/catalog/{material}/view-more", CatalogViewMore(svc, nil))
	return r
}

func TestCatalogBrowseValidatesQuery(t *testing.T) {
	svc := &stubCatalog{}
	router := catalogRouter(svc)

	for _, target := range []string{"/catalog/gold", "/catalog/platinum?category=rings"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestCatalogBrowsePassesViewerAndFilter(t *testing.T) {
	svc := &stubCatalog{}
	req, userID := withShopper(httptest.NewRequest(http.MethodGet, "/catalog/Silver?category=Rings&style=temple", nil))
	resp := httptest.NewRecorder()
	catalogRouter(svc).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID.String(), svc.viewer)
	assert.Equal(t, enums.MaterialSilver, svc.filter.Material)
	assert.Equal(t, "rings", svc.filter.MainCategory)
	assert.Equal(t, "temple", svc.filter.Style)
}

func TestCatalogViewMoreNeedsLogin(t *testing.T) {
	svc := &stubCatalog{}
	resp := httptest.NewRecorder()
	catalogRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/catalog/gold/view-more?category=rings", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.False(t, svc.loggedIn)

	req, _ := withShopper(httptest.NewRequest(http.MethodPost, "/catalog/gold/view-more?category=rings", nil))
	resp = httptest.NewRecorder()
	catalogRouter(svc).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var listing catalog.Listing
	decodeData(t, resp, &listing)
	assert.True(t, listing.Expanded)
}

type memoryCart struct {
	carts map[string]*cart.Store
}

func newMemoryCart() *memoryCart { return &memoryCart{carts: map[string]*cart.Store{}} }

func (m *memoryCart) open(userID string) *cart.Store {
	if m.carts[userID] == nil {
		m.carts[userID] = cart.NewStore(nil)
	}
	return m.carts[userID]
}

func (m *memoryCart) view(s *cart.Store) cart.View {
	return cart.View{Items: s.Items(), Count: s.Count(), TotalQuantity: s.TotalQuantity()}
}

func (m *memoryCart) Get(_ context.Context, userID string) (cart.View, error) {
	return m.view(m.open(userID)), nil
}

func (m *memoryCart) Add(_ context.Context, userID string, p cart.Product) (cart.View, error) {
	s := m.open(userID)
	s.AddToCart(p)
	return m.view(s), nil
}

func (m *memoryCart) UpdateQuantity(_ context.Context, userID, productID string, quantity int) (cart.View, error) {
	s := m.open(userID)
	s.UpdateQuantity(productID, quantity)
	return m.view(s), nil
}

func (m *memoryCart) Remove(_ context.Context, userID, productID string) (cart.View, error) {
	s := m.open(userID)
	s.RemoveFromCart(productID)
	return m.view(s), nil
}

func (m *memoryCart) Clear(_ context.Context, userID string) error {
	delete(m.carts, userID)
	return nil
}

func TestCartRequiresLogin(t *testing.T) {
	resp := httptest.NewRecorder()
	CartGet(newMemoryCart(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeUnauthorized), errorCode(t, resp))
}

func TestCartAddAndUpdate(t *testing.T) {
	svc := newMemoryCart()
	r := chi.NewRouter()
	r.Post("/cart/items", CartAdd(svc, nil))
	r.Patch("/cart/items/{productId}", CartUpdateQuantity(svc, nil))

	req, userID := withShopper(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"id":"p1","name":"Jhumka","code":"EJ-1"}`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	patch := httptest.NewRequest(http.MethodPatch, "/cart/items/p1", strings.NewReader(`{"quantity":3}`))
	patch = patch.WithContext(middleware.WithClaims(patch.Context(), &pkgAuth.AccessTokenClaims{UserID: userID}))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, patch)
	require.Equal(t, http.StatusOK, resp.Code)
	var view cart.View
	decodeData(t, resp, &view)
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, 3, view.TotalQuantity)

	missing := httptest.NewRequest(http.MethodPatch, "/cart/items/p1", strings.NewReader(`{}`))
	missing = missing.WithContext(middleware.WithClaims(missing.Context(), &pkgAuth.AccessTokenClaims{UserID: userID}))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, missing)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFavoritesScopedByDevice(t *testing.T) {
	svc := favorites.NewService(favorites.NewMemoryBlobStore(), nil)
	r := chi.NewRouter()
	r.Use(middleware.RequireDeviceID(nil))
	r.Post("/favorites", FavoritesAdd(svc, nil))
	r.Get("/favorites/{productId}", FavoritesContains(svc, nil))

	add := httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader(`{"id":"p9","name":"Kada"}`))
	add.Header.Set("X-Device-Id", "device-a")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, add)
	require.Equal(t, http.StatusOK, resp.Code)

	for device, want := range map[string]bool{"device-a": true, "device-b": false} {
		req := httptest.NewRequest(http.MethodGet, "/favorites/p9", nil)
		req.Header.Set("X-Device-Id", device)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		var got containsResponse
		decodeData(t, resp, &got)
		assert.Equal(t, want, got.IsFavorite, device)
	}
}

func TestFavoritesToggleFlipsHeart(t *testing.T) {
	svc := favorites.NewService(favorites.NewMemoryBlobStore(), nil)
	r := chi.NewRouter()
	r.Use(middleware.RequireDeviceID(nil))
	r.Post("/favorites/toggle", FavoritesToggle(svc, nil))

	for _, want := range []bool{true, false} {
		req := httptest.NewRequest(http.MethodPost, "/favorites/toggle", strings.NewReader(`{"id":"p9","name":"Kada"}`))
		req.Header.Set("X-Device-Id", "device-a")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		var got toggleResponse
		decodeData(t, resp, &got)
		assert.Equal(t, want, got.IsFavorite)
		assert.Equal(t, map[bool]int{true: 1, false: 0}[want], got.Favorites.Count)
	}
}

type stubOrders struct {
	who   orders.Identity
	items []orders.LineItem
}

func (s *stubOrders) CreateOrder(_ context.Context, items []orders.LineItem, who orders.Identity) (*orders.OrderDTO, error) {
	s.items, s.who = items, who
	return &orders.OrderDTO{ID: "ORD1700000000000", Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) NotifyExternalChannel(context.Context, orders.OrderDTO) orders.Handoff {
	return orders.Handoff{Message: "order", URL: "https://wa.me/910000000000?text=order"}
}

func (s *stubOrders) InquiryFor(_ context.Context, id string, _ orders.Identity) (orders.Handoff, error) {
	if id != "ORD1" {
		return orders.Handoff{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return orders.Handoff{Message: "status"}, nil
}

func (s *stubOrders) GetUserOrders(_ context.Context, phone, email string) ([]orders.OrderDTO, error) {
	s.who = orders.Identity{Phone: phone, Email: email}
	return []orders.OrderDTO{}, nil
}

func (s *stubOrders) ContactHandoff() orders.Handoff { return orders.Handoff{Message: "hello"} }

func TestOrdersCreateResolvesIdentity(t *testing.T) {
	svc := &stubOrders{}
	handler := OrdersCreate(svc, nil, testStores("asha@example.com"), nil)

	body := `{"items":[{"id":"p1","name":"Jhumka","quantity":2}]}`
	req, userID := withShopper(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.who.UserID)
	assert.Equal(t, userID, *svc.who.UserID)
	assert.Equal(t, "+919876543210", svc.who.Phone)
	assert.Equal(t, "asha@example.com", svc.who.Email)
	require.Len(t, svc.items, 1)

	var placed placedOrderResponse
	decodeData(t, resp, &placed)
	assert.Contains(t, placed.Handoff.URL, "wa.me")
}

func TestOrdersCreateRejectsEmptyCart(t *testing.T) {
	req, _ := withShopper(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`)))
	resp := httptest.NewRecorder()
	OrdersCreate(&stubOrders{}, newMemoryCart(), nil, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
}

func TestOrdersCreateReadsCartAndLeavesItIntact(t *testing.T) {
	carts := newMemoryCart()
	svc := &stubOrders{}
	r := chi.NewRouter()
	r.Get("/cart", CartGet(carts, nil))
	r.Post("/orders", OrdersCreate(svc, carts, nil, nil))

	userID := uuid.New()
	asShopper := func(req *http.Request) *http.Request {
		claims := &pkgAuth.AccessTokenClaims{UserID: userID, Phone: "+919876543210", Role: enums.RoleCustomer}
		return req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	_, err := carts.Add(context.Background(), userID.String(), cart.Product{ID: "p1", Name: "Jhumka", Code: "EJ-1", MinWeight: "4g"})
	require.NoError(t, err)
	_, err = carts.UpdateQuantity(context.Background(), userID.String(), "p1", 2)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, asShopper(httptest.NewRequest(http.MethodPost, "/orders", nil)))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, svc.items, 1)
	assert.Equal(t, orders.LineItem{ID: "p1", Name: "Jhumka", Code: "EJ-1", MinWeight: "4g", Quantity: 2}, svc.items[0])

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, asShopper(httptest.NewRequest(http.MethodGet, "/cart", nil)))
	require.Equal(t, http.StatusOK, resp.Code)
	var view cart.View
	decodeData(t, resp, &view)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestOrdersCreateEmptyCartRejected(t *testing.T) {
	req, _ := withShopper(httptest.NewRequest(http.MethodPost, "/orders", nil))
	resp := httptest.NewRecorder()
	OrdersCreate(&stubOrders{}, newMemoryCart(), nil, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrdersInquiryNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{orderId}/inquiry", OrdersInquiry(&stubOrders{}, nil, nil))
	req, _ := withShopper(httptest.NewRequest(http.MethodGet, "/orders/ORD2/inquiry", nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionRestoreAnonymous(t *testing.T) {
	resp := httptest.NewRecorder()
	SessionRestore(testStores(""), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var snap identity.Session
	decodeData(t, resp, &snap)
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
}

func TestSessionRestoreSignedIn(t *testing.T) {
	req, userID := withShopper(httptest.NewRequest(http.MethodGet, "/session", nil))
	resp := httptest.NewRecorder()
	SessionRestore(testStores("asha@example.com"), nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var snap identity.Session
	decodeData(t, resp, &snap)
	require.True(t, snap.IsLoggedIn)
	assert.Equal(t, userID.String(), snap.User.ID)
}

func TestSessionEventsNeedsLogin(t *testing.T) {
	resp := httptest.NewRecorder()
	SessionEvents(testStores(""), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/events", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

type fixedRates struct{ snap rates.Snapshot }

func (f fixedRates) Current() rates.Snapshot { return f.snap }

func TestMarketRatesReturnsSnapshot(t *testing.T) {
	gold := decimal.NewFromInt(7150)
	resp := httptest.NewRecorder()
	MarketRates(fixedRates{snap: rates.Snapshot{Gold: &gold}}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/rates", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
	assert.Contains(t, resp.Body.String(), `"silver_rate":null`)
}

func TestNilServiceIsInternalError(t *testing.T) {
	resp := httptest.NewRecorder()
	MarketRates(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/rates", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	deps := map[string]Pinger{
		"db":    pingerFunc(func(context.Context) error { return nil }),
		"redis": pingerFunc(func(context.Context) error { return errors.New("down") }),
	}
	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, deps).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "redis")
}
