package topology

import (
	"context"
	"encoding/json"
)

// Offering is an orderable entry in the external inventory.
type Offering struct {
	Ref         string `json:"id"`
	SourceRef   string `json:"source_ref"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconRef     string `json:"service_offering_icon_id"`
}

// Icon is the offering icon payload.
type Icon struct {
	Ref       string `json:"id"`
	SourceRef string `json:"source_ref"`
	Data      string `json:"data"`
}

// ServicePlan describes one way an offering can be ordered.
type ServicePlan struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CreateJSONSchema json.RawMessage `json:"create_json_schema"`
}

// Gateway abstracts the remote topology/inventory service, the system
// of record for service offerings. Every call returns either a payload
// or one of the typed outcomes in the domain package:
// domain.ErrOfferingNotFound, *domain.TopologyInconsistency or
// domain.ErrTopologyUnavailable. The gateway never retries; retry
// policy belongs to the caller.
type Gateway interface {
	FetchOffering(ctx context.Context, ref string) (*Offering, error)
	FetchIcon(ctx context.Context, iconRef string) (*Icon, error)
	FetchPlans(ctx context.Context, offeringRef string) ([]ServicePlan, error)
	FetchControlParameters(ctx context.Context, sourceRef string) (map[string]any, error)
}
