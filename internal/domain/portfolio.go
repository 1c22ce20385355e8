package domain

import (
	"time"

	"github.com/google/uuid"
)

// Portfolio groups orderable portfolio items under one owner.
type Portfolio struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       string     `json:"owner"`
	DiscardedAt *time.Time `json:"discarded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewPortfolio(name, description, owner string) Portfolio {
	now := time.Now()
	return Portfolio{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p Portfolio) Ref() ResourceRef {
	return ResourceRef{Type: ResourceTypePortfolio, ID: p.ID}
}

func (p Portfolio) Discarded() bool {
	return p.DiscardedAt != nil
}

// PortfolioUpdate carries the mutable portfolio attributes; nil fields
// are left untouched.
type PortfolioUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p *Portfolio) Apply(u PortfolioUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	p.UpdatedAt = time.Now()
}

// Copy returns an independent portfolio with a fresh identity, owned by
// the copying principal. Grants are never carried over: a copy starts
// unshared.
func (p Portfolio) Copy(name, owner string) Portfolio {
	return NewPortfolio(name, p.Description, owner)
}
