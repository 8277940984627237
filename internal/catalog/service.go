// Package catalog serves the material pages, the homepage highlights and the
// admin forms that feed them.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/internal/media"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/pagination"
	"github.com/angelmondragon/elitejewels-backend/pkg/types"
	"github.com/shopspring/decimal"
)

const defaultPreviewSize = 6

type productRepository interface {
	ListProducts(ctx context.Context, f Filter) ([]models.Product, error)
	PageProducts(ctx context.Context, material *enums.Material, params pagination.Params) ([]models.Product, string, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	ListNewArrivals(ctx context.Context, limit int) ([]models.NewArrival, error)
	CreateNewArrival(ctx context.Context, n *models.NewArrival) error
}

type imageStore interface {
	Check(img media.Upload) error
	UploadProductImage(ctx context.Context, material, mainCategory string, img media.Upload) (*media.Stored, error)
	UploadNewArrivalImage(ctx context.Context, img media.Upload) (*media.Stored, error)
	Discard(ctx context.Context, object string)
}

type ServiceParams struct {
	Repo        productRepository
	Expansions  Expansions
	Images      imageStore
	PreviewSize int
	Logger      *logger.Logger
}

type Service struct {
	repo        productRepository
	expansions  Expansions
	images      imageStore
	previewSize int
	logg        *logger.Logger
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if p.Expansions == nil {
		p.Expansions = NewMemoryExpansions()
	}
	if p.PreviewSize <= 0 {
		p.PreviewSize = defaultPreviewSize
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Service{repo: p.Repo, expansions: p.Expansions, images: p.Images, previewSize: p.PreviewSize, logg: p.Logger}, nil
}

// Browse lists products for f. Only the first preview-size items are
// returned unless viewer already expanded this exact combination.
func (s *Service) Browse(ctx context.Context, viewer string, f Filter) (*Listing, error) {
	rows, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	key := f.Key()
	expanded := false
	if viewer != "" {
		expanded, err = s.expansions.IsExpanded(ctx, viewer, key)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog: expansion lookup failed")
			expanded = false
		}
	}

	shown := rows
	if !expanded && len(shown) > s.previewSize {
		shown = shown[:s.previewSize]
	}
	items := make([]ProductDTO, 0, len(shown))
	for _, p := range shown {
		items = append(items, FromProduct(p))
	}
	return &Listing{
		Key:      key,
		Items:    items,
		Total:    len(rows),
		HasMore:  len(rows) > len(shown),
		Expanded: expanded,
	}, nil
}

// ViewMore expands f for a logged in viewer and returns the full listing.
func (s *Service) ViewMore(ctx context.Context, viewer string, loggedIn bool, f Filter) (*Listing, error) {
	if !loggedIn || viewer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "log in to view the full collection")
	}
	if err := s.expansions.Expand(ctx, viewer, f.Key()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record expansion")
	}
	return s.Browse(ctx, viewer, f)
}

func (s *Service) NewArrivals(ctx context.Context, limit int) ([]NewArrivalDTO, error) {
	rows, err := s.repo.ListNewArrivals(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load new arrivals")
	}
	out := make([]NewArrivalDTO, 0, len(rows))
	for _, n := range rows {
		out = append(out, FromNewArrival(n))
	}
	return out, nil
}

// ListProducts is the admin product list.
func (s *Service) ListProducts(ctx context.Context, material string, params pagination.Params) (*types.CursorPage[ProductDTO], error) {
	var filter *enums.Material
	if strings.TrimSpace(material) != "" {
		m, err := enums.ParseMaterial(material)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material")
		}
		filter = &m
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.PageProducts(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		items = append(items, FromProduct(p))
	}
	return types.NewCursorPage(items, next), nil
}

// CreateProduct validates the form, uploads the image and inserts the row.
// The uploaded object is removed again when the insert fails.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, img media.Upload) (*ProductDTO, error) {
	product, err := s.productFromInput(in)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage not configured")
	}
	if err := s.images.Check(img); err != nil {
		return nil, err
	}

	stored, err := s.images.UploadProductImage(ctx, product.Material.String(), product.MainCategory, img)
	if err != nil {
		return nil, err
	}
	product.ImageURL = stored.URL
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		s.images.Discard(ctx, stored.Object)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	out := FromProduct(*product)
	return &out, nil
}

// CreateNewArrival validates the form, uploads the image and inserts the highlight.
func (s *Service) CreateNewArrival(ctx context.Context, in NewArrivalInput, img media.Upload) (*NewArrivalDTO, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and image are required").
			WithDetails(map[string]string{"name": "required"})
	}
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage not configured")
	}
	if err := s.images.Check(img); err != nil {
		return nil, err
	}

	stored, err := s.images.UploadNewArrivalImage(ctx, img)
	if err != nil {
		return nil, err
	}
	row := &models.NewArrival{
		Name:      name,
		MinWeight: strings.TrimSpace(in.MinWeight),
		Code:      strings.TrimSpace(in.Code),
		Category:  strings.TrimSpace(in.Category),
		ImageURL:  stored.URL,
	}
	if row.Category == "" {
		row.Category = "pendant"
	}
	if err := s.repo.CreateNewArrival(ctx, row); err != nil {
		s.images.Discard(ctx, stored.Object)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert new arrival")
	}
	out := FromNewArrival(*row)
	return &out, nil
}

func (s *Service) productFromInput(in ProductInput) (*models.Product, error) {
	problems := map[string]string{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems["name"] = "required"
	}
	material, err := enums.ParseMaterial(in.Material)
	if err != nil {
		problems["material"] = "must be gold or silver"
	}
	for field, msg := range CheckPlacement(in.MainCategory, in.SubCategory, in.Style) {
		problems[field] = msg
	}
	minWeight, err := decimal.NewFromString(strings.TrimSpace(in.MinWeight))
	if err != nil || minWeight.IsNegative() {
		problems["min_weight"] = "must be a non-negative number"
	}
	var actual decimal.NullDecimal
	if raw := strings.TrimSpace(in.ActualWeight); raw != "" {
		w, err := decimal.NewFromString(raw)
		if err != nil || w.IsNegative() {
			problems["actual_weight"] = "must be a non-negative number"
		} else {
			actual = decimal.NewNullDecimal(w)
		}
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(problems)
	}

	style := strings.ToLower(strings.TrimSpace(in.Style))
	if style == "" {
		style = StyleAll
	}
	var sub *string
	if v := strings.ToLower(strings.TrimSpace(in.SubCategory)); v != "" {
		sub = &v
	}
	return &models.Product{
		Name:         name,
		MinWeight:    minWeight,
		ActualWeight: actual,
		ProductCode:  strings.TrimSpace(in.ProductCode),
		Material:     material,
		MainCategory: strings.ToLower(strings.TrimSpace(in.MainCategory)),
		SubCategory:  sub,
		Style:        style,
	}, nil
}
