package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusInProgress},
		{OrderStatusConfirmed, OrderStatusReady},
		{OrderStatusInProgress, OrderStatusReady},
		{OrderStatusReady, OrderStatusDelivered},
		{OrderStatusReady, OrderStatusReady},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to OrderStatus }{
		{OrderStatusDelivered, OrderStatusPending},
		{OrderStatusCancelled, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusReady, OrderStatusPending},
		{OrderStatus("bogus"), OrderStatus("bogus")},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatalf("delivered and cancelled must be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatalf("pending is not terminal")
	}
	next := NextOrderStatuses(OrderStatusPending)
	next[0] = OrderStatusDelivered
	if NextOrderStatuses(OrderStatusPending)[0] != OrderStatusConfirmed {
		t.Fatalf("NextOrderStatuses must return a copy")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("in-progress")
	if err != nil || status != OrderStatusInProgress {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestParseMaterial(t *testing.T) {
	m, err := ParseMaterial(" Gold ")
	if err != nil || m != MaterialGold {
		t.Fatalf("unexpected material %q %v", m, err)
	}
	if _, err := ParseMaterial("platinum"); err == nil {
		t.Fatalf("expected error for unknown material")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Fatalf("unexpected role %q %v", r, err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
