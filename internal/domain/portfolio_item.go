package domain

import (
	"time"

	"github.com/google/uuid"
)

// PortfolioItem is a catalog entry backed by a service offering in the
// external topology service. The offering refs are validated against
// topology when the item is created and are immutable afterwards.
type PortfolioItem struct {
	ID                       string     `json:"id"`
	PortfolioID              string     `json:"portfolio_id"`
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	Owner                    string     `json:"owner"`
	ServiceOfferingRef       string     `json:"service_offering_ref"`
	ServiceOfferingSourceRef string     `json:"service_offering_source_ref"`
	ServiceOfferingIconRef   string     `json:"service_offering_icon_ref"`
	WorkflowRef              string     `json:"workflow_ref"`
	DiscardedAt              *time.Time `json:"discarded_at,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

func NewPortfolioItem(portfolioID, name, description, owner string) PortfolioItem {
	now := time.Now()
	return PortfolioItem{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Name:        name,
		Description: description,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (i PortfolioItem) Ref() ResourceRef {
	return ResourceRef{Type: ResourceTypePortfolioItem, ID: i.ID}
}

func (i PortfolioItem) Discarded() bool {
	return i.DiscardedAt != nil
}

// ItemPatch carries an incoming partial update. Only name, description
// and workflow_ref are mutable; offering refs in a patch are silently
// dropped rather than rejected, so a mixed request still succeeds with
// the mutable subset applied.
type ItemPatch struct {
	Name                     *string `json:"name"`
	Description              *string `json:"description"`
	WorkflowRef              *string `json:"workflow_ref"`
	ServiceOfferingRef       *string `json:"service_offering_ref"`
	ServiceOfferingSourceRef *string `json:"service_offering_source_ref"`
}

func (i *PortfolioItem) Apply(p ItemPatch) {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.WorkflowRef != nil {
		i.WorkflowRef = *p.WorkflowRef
	}
	i.UpdatedAt = time.Now()
}

// Copy duplicates the item by value into another portfolio. The copy
// gets a fresh identity and owner; offering refs travel with it since
// both items point at the same upstream offering.
func (i PortfolioItem) Copy(portfolioID, owner string) PortfolioItem {
	cp := NewPortfolioItem(portfolioID, i.Name, i.Description, owner)
	cp.ServiceOfferingRef = i.ServiceOfferingRef
	cp.ServiceOfferingSourceRef = i.ServiceOfferingSourceRef
	cp.ServiceOfferingIconRef = i.ServiceOfferingIconRef
	cp.WorkflowRef = i.WorkflowRef
	return cp
}
