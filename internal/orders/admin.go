package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/phone"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CreateAdminOrder records an order taken by staff for a customer phone.
// The whole form is validated before the profile lookup or any insert.
func (s *Service) CreateAdminOrder(ctx context.Context, in AdminOrderInput) (*OrderDTO, error) {
	order, problems := s.adminOrderFromInput(in)
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(problems)
	}

	s.ensureProfile(ctx, *order.UserPhone)

	if order.Ref == nil {
		ref, err := s.generateRef()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate ref")
		}
		order.Ref = &ref
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	s.metrics.OrderCreated("admin")
	out := FromModel(*order)
	return &out, nil
}

// ListProfilePhones returns normalized, de-duplicated phone suggestions.
func (s *Service) ListProfilePhones(ctx context.Context) ([]string, error) {
	raw, err := s.profiles.ListPhones(ctx, s.listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list phones")
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		n, _ := phone.Canonical(p)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) adminOrderFromInput(in AdminOrderInput) (*models.Order, map[string]string) {
	problems := map[string]string{}

	normalized, _ := phone.Canonical(in.Phone)
	if normalized == "" {
		problems["phone"] = "enter the customer phone number"
	}
	if len(in.Items) == 0 {
		problems["items"] = "add at least one item"
	}

	items := make(models.OrderItems, 0, len(in.Items))
	total := decimal.Zero
	priced := false
	for i, it := range in.Items {
		key := "items[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(it.Name) == "" {
			problems[key+".name"] = "each item must have a name"
		}
		if it.Quantity < 1 {
			problems[key+".quantity"] = "each item must have quantity >= 1"
		}
		line := models.OrderItem{
			Name:     strings.TrimSpace(it.Name),
			Code:     strings.TrimSpace(it.Code),
			Image:    strings.TrimSpace(it.Image),
			Quantity: it.Quantity,
		}
		if it.Rate != nil && strings.TrimSpace(*it.Rate) != "" {
			rate, err := decimal.NewFromString(strings.TrimSpace(*it.Rate))
			if err != nil {
				problems[key+".rate"] = "item rate must be a number"
			} else {
				line.Rate = decimal.NewNullDecimal(rate)
				total = total.Add(rate.Mul(decimal.NewFromInt(int64(it.Quantity))))
				priced = true
			}
		}
		items = append(items, line)
	}

	var totalPrice decimal.NullDecimal
	if in.OverrideTotal != nil && strings.TrimSpace(*in.OverrideTotal) != "" {
		override, err := decimal.NewFromString(strings.TrimSpace(*in.OverrideTotal))
		if err != nil {
			problems["override_total"] = "custom total must be numeric"
		} else {
			totalPrice = decimal.NewNullDecimal(override)
		}
	} else if priced {
		totalPrice = decimal.NewNullDecimal(total)
	}

	advance := parseAmount(problems, "advance_paid", in.AdvancePaid)
	balance := parseAmount(problems, "balance_amount", in.BalanceAmount)

	status := enums.OrderStatusPending
	if raw := strings.TrimSpace(in.Status); raw != "" {
		parsed, err := enums.ParseOrderStatus(raw)
		if err != nil {
			problems["status"] = "unknown status"
		} else {
			status = parsed
		}
	}
	estimated, err := parseDate(in.EstimatedDelivery)
	if err != nil {
		problems["estimated_delivery"] = err.Error()
	}
	delivered, err := parseDate(in.DeliveredAt)
	if err != nil {
		problems["delivered_at"] = err.Error()
	}

	if len(problems) > 0 {
		return nil, problems
	}

	weight := strings.TrimSpace(in.TotalWeight)
	if weight == "" {
		weight = "0g"
	}
	return &models.Order{
		ID:                uuid.NewString(),
		UserPhone:         &normalized,
		Items:             items,
		Status:            status,
		OrderDate:         s.now().UTC(),
		EstimatedDelivery: estimated,
		DeliveredAt:       delivered,
		AdvancePaid:       advance,
		BalanceAmount:     balance,
		TotalPrice:        totalPrice,
		TotalWeight:       weight,
		Notes:             optional(in.Notes),
		Ref:               optional(in.Ref),
	}, nil
}

// ensureProfile creates a phone-only profile for unknown customers. Lookup
// and insert failures are logged and the order goes ahead.
func (s *Service) ensureProfile(ctx context.Context, number string) {
	ctx = s.logg.WithField(ctx, "phone_suffix", suffix(number))
	exists, err := s.profiles.ExistsByPhone(ctx, number)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders: profile lookup failed")
	}
	if exists {
		return
	}
	if _, err := s.profiles.CreatePhoneOnly(ctx, number); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders: profile insert failed")
	}
}

// generateRef returns REF-<last 6 digits of unix millis>-<3 upper alnum>.
func (s *Service) generateRef() (string, error) {
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	tail, err := s.refSuffix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("REF-%s-%s", millis, tail), nil
}

func randomRefSuffix() (string, error) {
	var b strings.Builder
	base := big.NewInt(int64(len(refAlphabet)))
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(refAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func parseAmount(problems map[string]string, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		problems[field] = "must be numeric"
		return decimal.Zero
	}
	return d
}

func suffix(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
