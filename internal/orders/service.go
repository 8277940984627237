// Package orders turns carts into orders, hands shoppers off to the
// messaging channel and backs the admin order screens.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 200
	eventPublishWait = 10 * time.Second

	// EventOrderPlaced is the Pub/Sub event type for shopper orders.
	EventOrderPlaced = "order.placed"
)

type orderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	ListByPhone(ctx context.Context, phone string) ([]models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	Update(ctx context.Context, id string, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type profileDirectory interface {
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	CreatePhoneOnly(ctx context.Context, phone string) (*models.Profile, error)
	ListPhones(ctx context.Context, limit int) ([]string, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, eventType string, data any) error
}

type ServiceParams struct {
	Repo      orderRepository
	Profiles  profileDirectory
	Events    eventEmitter
	Linker    Linker
	ListLimit int
	Logger    *logger.Logger
	Metrics   *metrics.Storefront
	Now       func() time.Time
	RefSuffix func() (string, error)
}

type Service struct {
	repo      orderRepository
	profiles  profileDirectory
	events    eventEmitter
	linker    Linker
	listLimit int
	logg      *logger.Logger
	metrics   *metrics.Storefront
	now       func() time.Time
	refSuffix func() (string, error)

	idMu     sync.Mutex
	lastID   int64
	inflight sync.WaitGroup
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if p.ListLimit <= 0 {
		p.ListLimit = defaultListLimit
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.RefSuffix == nil {
		p.RefSuffix = randomRefSuffix
	}
	if p.Linker == (Linker{}) {
		p.Linker = NewLinker("", "")
	}
	return &Service{
		repo:      p.Repo,
		profiles:  p.Profiles,
		events:    p.Events,
		linker:    p.Linker,
		listLimit: p.ListLimit,
		logg:      p.Logger,
		metrics:   p.Metrics,
		now:       p.Now,
		refSuffix: p.RefSuffix,
	}, nil
}

// CreateOrder stores a pending order built from the cart lines. The cart
// itself is left untouched.
func (s *Service) CreateOrder(ctx context.Context, items []LineItem, who Identity) (*OrderDTO, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines := make(models.OrderItems, 0, len(items))
	for i, it := range items {
		if it.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d quantity must be at least 1", i+1)
		}
		lines = append(lines, models.OrderItem{
			ID:        it.ID,
			Name:      it.Name,
			Code:      it.Code,
			Image:     it.Image,
			MinWeight: it.MinWeight,
			Category:  it.Category,
			Quantity:  it.Quantity,
		})
	}

	now := s.now()
	order := &models.Order{
		ID:            s.nextOrderID(now),
		UserID:        who.UserID,
		UserPhone:     optional(who.Phone),
		UserEmail:     optional(who.Email),
		Items:         lines,
		Status:        enums.OrderStatusPending,
		OrderDate:     now.UTC(),
		AdvancePaid:   decimal.Zero,
		BalanceAmount: decimal.Zero,
		TotalWeight:   "0g",
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	s.metrics.OrderCreated("shopper")
	out := FromModel(*order)
	return &out, nil
}

// NotifyExternalChannel returns the messaging hand-off for a placed order and
// publishes order.placed in the background. Publish failures are logged only.
func (s *Service) NotifyExternalChannel(ctx context.Context, order OrderDTO) Handoff {
	s.metrics.Handoff("order")
	if s.events != nil {
		evt := PlacedEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			UserPhone: order.UserPhone,
			UserEmail: order.UserEmail,
			Items:     order.Items,
			OrderDate: order.OrderDate,
		}
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishWait)
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			defer cancel()
			if err := s.events.Emit(bg, EventOrderPlaced, evt); err != nil {
				s.logg.Warn(s.logg.WithFields(bg, map[string]any{"order_id": evt.OrderID, "error": err.Error()}), "orders: publishing order.placed failed")
			}
		}()
	}
	return s.linker.Link(OrderSummary(order.ID, order.Items))
}

// Wait blocks until background event publishes finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// StatusInquiry builds the hand-off asking about an order's progress.
func (s *Service) StatusInquiry(order OrderDTO) Handoff {
	s.metrics.Handoff("status")
	label := order.DisplayID
	if label == "" {
		label = order.ID
	}
	return s.linker.Link(fmt.Sprintf(statusMessage, label))
}

// InquiryFor loads an order owned by who and returns its status hand-off.
func (s *Service) InquiryFor(ctx context.Context, id string, who Identity) (Handoff, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return Handoff{}, err
	}
	if !owns(*order, who) {
		return Handoff{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.StatusInquiry(FromModel(*order)), nil
}

// ContactHandoff is the generic enquiry link.
func (s *Service) ContactHandoff() Handoff {
	s.metrics.Handoff("contact")
	return s.linker.Link(contactMessage)
}

// GetUserOrders lists a shopper's orders by phone, falling back to email
// when the phone lookup fails or no phone is known.
func (s *Service) GetUserOrders(ctx context.Context, phone, email string) ([]OrderDTO, error) {
	phone, email = strings.TrimSpace(phone), strings.TrimSpace(email)
	var (
		rows []models.Order
		err  error
	)
	switch {
	case phone != "":
		rows, err = s.repo.ListByPhone(ctx, phone)
		if err != nil && email != "" {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders: phone lookup failed, falling back to email")
			rows, err = s.repo.ListByEmail(ctx, email)
		}
	case email != "":
		rows, err = s.repo.ListByEmail(ctx, email)
	default:
		return []OrderDTO{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}
	return toDTOs(rows), nil
}

// UpdateOrder applies an admin patch. Status changes must follow the
// transition table; every field is validated before anything is written.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch Patch) (*OrderDTO, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	problems := map[string]string{}
	updates := map[string]any{}

	if patch.Status != nil {
		next, err := enums.ParseOrderStatus(strings.TrimSpace(*patch.Status))
		switch {
		case err != nil:
			problems["status"] = "unknown status"
		case !current.Status.CanTransitionTo(next):
			return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", current.Status, next).
				WithDetails(map[string]any{"from": current.Status, "to": next, "allowed": enums.NextOrderStatuses(current.Status)})
		case next != current.Status:
			updates["status"] = next
			if next == enums.OrderStatusDelivered && current.DeliveredAt == nil && patch.DeliveredAt == nil {
				updates["delivered_at"] = s.now().UTC()
			}
		}
	}
	setDate(problems, updates, "estimated_delivery", patch.EstimatedDelivery)
	setDate(problems, updates, "delivered_at", patch.DeliveredAt)
	setAmount(problems, updates, "advance_paid", patch.AdvancePaid, false)
	setAmount(problems, updates, "balance_amount", patch.BalanceAmount, false)
	setAmount(problems, updates, "total_price", patch.TotalPrice, true)
	if patch.TotalWeight != nil {
		updates["total_weight"] = strings.TrimSpace(*patch.TotalWeight)
	}
	if patch.Notes != nil {
		updates["notes"] = optional(*patch.Notes)
	}
	if patch.Ref != nil {
		updates["ref"] = optional(*patch.Ref)
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order update").WithDetails(problems)
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		found, err := s.repo.Update(ctx, id, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if current, err = s.load(ctx, id); err != nil {
			return nil, err
		}
	}
	out := FromModel(*current)
	return &out, nil
}

// ListOrders returns the newest orders for the admin screen.
func (s *Service) ListOrders(ctx context.Context) ([]OrderDTO, error) {
	rows, err := s.repo.ListRecent(ctx, s.listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toDTOs(rows), nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// nextOrderID returns ORD<unix-millis>, bumping the millisecond when two
// orders land in the same one.
func (s *Service) nextOrderID(now time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	ms := now.UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return fmt.Sprintf("ORD%d", ms)
}

func owns(o models.Order, who Identity) bool {
	if who.UserID != nil && o.UserID != nil && *who.UserID == *o.UserID {
		return true
	}
	if who.Phone != "" && o.UserPhone != nil && *o.UserPhone == who.Phone {
		return true
	}
	return who.Email != "" && o.UserEmail != nil && strings.EqualFold(*o.UserEmail, who.Email)
}

func toDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, o := range rows {
		out = append(out, FromModel(o))
	}
	return out
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

var errBadDate = errors.New("expected RFC3339 timestamp or YYYY-MM-DD")

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errBadDate
}

func setDate(problems map[string]string, updates map[string]any, field string, raw *string) {
	if raw == nil {
		return
	}
	t, err := parseDate(*raw)
	if err != nil {
		problems[field] = err.Error()
		return
	}
	if t == nil {
		updates[field] = nil
		return
	}
	updates[field] = *t
}

func setAmount(problems map[string]string, updates map[string]any, field string, raw *string, nullable bool) {
	if raw == nil {
		return
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		if nullable {
			updates[field] = decimal.NullDecimal{}
		} else {
			updates[field] = decimal.Zero
		}
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		problems[field] = "must be numeric"
		return
	}
	if nullable {
		updates[field] = decimal.NewNullDecimal(d)
		return
	}
	updates[field] = d
}
