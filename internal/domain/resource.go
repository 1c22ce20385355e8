package domain

import "time"

type ResourceType string

const (
	ResourceTypePortfolio     ResourceType = "portfolio"
	ResourceTypePortfolioItem ResourceType = "portfolio_item"
)

// ResourceRef addresses any shareable, discardable resource by type and
// id. Grants, restore tokens and access decisions all key on it.
type ResourceRef struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
}

func (r ResourceRef) String() string {
	return string(r.Type) + "/" + r.ID
}

// Resource is the lifecycle view of a resource, enough for access and
// discard decisions without loading the full record.
type Resource struct {
	Ref         ResourceRef
	Owner       string
	DiscardedAt *time.Time
}

func (r Resource) Discarded() bool {
	return r.DiscardedAt != nil
}
