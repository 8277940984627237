package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All lists every persisted model, in dependency order. Used for sqlite
// auto-migration; Postgres schemas come from the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&Product{},
		&NewArrival{},
		&Order{},
		&MarketRate{},
		&OutboxEvent{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate hooks assign ids client side so sqlite and Postgres behave alike.

func (u *User) BeforeCreate(*gorm.DB) error        { ensureID(&u.ID); return nil }
func (p *Profile) BeforeCreate(*gorm.DB) error     { ensureID(&p.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error     { ensureID(&p.ID); return nil }
func (n *NewArrival) BeforeCreate(*gorm.DB) error  { ensureID(&n.ID); return nil }
func (m *MarketRate) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
