package domain

import (
	"fmt"
	"time"
)

// Verb is one of the four access verbs grants are expressed in.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

func ParseVerb(s string) (Verb, error) {
	switch v := Verb(s); v {
	case VerbRead, VerbCreate, VerbUpdate, VerbDelete:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, s)
	}
}

// ParseVerbs rejects the whole input on the first unknown verb; an
// empty input is invalid.
func ParseVerbs(raw []string) ([]Verb, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: permissions are required", ErrInvalidArgument)
	}
	verbs := make([]Verb, 0, len(raw))
	for _, s := range raw {
		v, err := ParseVerb(s)
		if err != nil {
			return nil, err
		}
		verbs = append(verbs, v)
	}
	return verbs, nil
}

// AccessGrant gives one group one verb on one resource. The tuple is
// the identity: granting it twice is a no-op.
type AccessGrant struct {
	Resource  ResourceRef `json:"resource"`
	GroupID   string      `json:"group_uuid"`
	Verb      Verb        `json:"permission"`
	CreatedAt time.Time   `json:"created_at"`
}

// GroupShare is the per-group aggregation returned by share_info.
type GroupShare struct {
	GroupID string `json:"group_uuid"`
	Verbs   []Verb `json:"permissions"`
}
