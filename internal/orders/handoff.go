package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
)

const (
	contactMessage = "Hi! I'm interested in placing an order. Could you please help me with the process?"
	statusMessage  = "Hi! I'd like to check the status of my order %s"
)

// Linker builds messaging deep links of the form https://<host>/<recipient>?text=<message>.
type Linker struct {
	host      string
	recipient string
}

func NewLinker(host, recipient string) Linker {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(host), "https://"), "/")
	if host == "" {
		host = "wa.me"
	}
	return Linker{host: host, recipient: strings.TrimSpace(recipient)}
}

func (l Linker) Link(message string) Handoff {
	return Handoff{
		Message: message,
		URL:     fmt.Sprintf("https://%s/%s?text=%s", l.host, l.recipient, encodeComponent(message)),
	}
}

// OrderSummary lists one line per item under the order id.
func OrderSummary(orderID string, items []models.OrderItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s (%s) - Qty: %d, Min. Weight: %s", it.Name, it.Code, it.Quantity, it.MinWeight))
	}
	return fmt.Sprintf("Hi! I would like to place an order:\n\nOrder ID: %s\n\nItems:\n%s\n\nPlease confirm the weights, pricing, and delivery timeline. Thank you!",
		orderID, strings.Join(lines, "\n"))
}

// encodeComponent percent-encodes every byte except A-Z a-z 0-9 and - _ . ! ~ * ' ( ),
// matching what browsers produce for a URI component.
func encodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
