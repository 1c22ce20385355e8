package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors of the catalog domain. Wrapped errors carry context;
// callers classify with errors.Is / errors.As.
var (
	// ErrNotFound covers resources that do not exist or are discarded,
	// which are indistinguishable to ordinary reads.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyDiscarded is the losing side of a concurrent discard.
	ErrAlreadyDiscarded = errors.New("already discarded")

	// ErrNotDiscarded rejects a restore of a live resource.
	ErrNotDiscarded = errors.New("not discarded")

	// ErrInvalidRestoreToken rejects a consumed, superseded or forged
	// restore token.
	ErrInvalidRestoreToken = errors.New("invalid restore token")

	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOfferingNotFound means topology does not know the offering ref.
	ErrOfferingNotFound = errors.New("service offering not found")

	// ErrTopologyUnavailable means the topology service could not be
	// reached or failed; the request may succeed on retry.
	ErrTopologyUnavailable = errors.New("topology service unavailable")
)

// DeniedError is an authorization refusal naming the resource and the
// verb that was refused.
type DeniedError struct {
	Resource ResourceRef
	Verb     Verb
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s on %s", e.Verb, e.Resource)
}

// TopologyInconsistency reports that topology answered, but with an
// error payload of its own. MissingRef marks the payloads that blame a
// missing service_offering_ref, which callers treat as the offering not
// existing.
type TopologyInconsistency struct {
	Message    string
	MissingRef bool
}

func (e *TopologyInconsistency) Error() string {
	return "topology inconsistency: " + e.Message
}
