package cart

import "sync"

// Product is the catalog reference a shopper adds to the cart.
type Product struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Image     string `json:"image"`
	MinWeight string `json:"minWeight"`
	Code      string `json:"code"`
	Category  string `json:"category"`
}

// Item is one cart line. Quantity is always at least 1.
type Item struct {
	Product
	Quantity int `json:"quantity"`
}

// Store is the in-memory cart reducer. Lines are unique per product id and
// keep insertion order.
type Store struct {
	mu    sync.Mutex
	items []Item
}

func NewStore(items []Item) *Store {
	s := &Store{}
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 || s.indexOf(it.ID) >= 0 {
			continue
		}
		s.items = append(s.items, it)
	}
	return s
}

// AddToCart increments the line for p.ID or appends a new line with quantity 1.
func (s *Store) AddToCart(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity++
		return
	}
	s.items = append(s.items, Item{Product: p, Quantity: 1})
}

// UpdateQuantity sets the quantity of a line. Anything below 1 removes it.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	if quantity < 1 {
		s.removeAt(i)
		return
	}
	s.items[i].Quantity = quantity
}

func (s *Store) RemoveFromCart(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.removeAt(i)
	}
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Count is the number of distinct lines, used for the cart badge.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalQuantity sums quantities across lines.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

// Items returns a copy of the lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.items = append(s.items[:i], s.items[i+1:]...)
}
