// Package adapters defines the federation adapter boundary: facility and
// facility-attribute lookups against the identity-federation registry.
package adapters

import (
	"context"

	"github.com/getkayan/authproc/domain"
)

// Adapter resolves facilities and their attributes from the federation
// registry. Lookups may fail with transport errors; callers decide whether
// a failure degrades or propagates.
type Adapter interface {
	// GetFacilityByClientID returns the facility a client maps to, or nil
	// when no mapping exists.
	GetFacilityByClientID(ctx context.Context, clientID string) (*domain.Facility, error)

	// GetFacilityAttributeValue returns a named attribute of a facility,
	// or nil when the attribute is unset.
	GetFacilityAttributeValue(ctx context.Context, facilityID, attrName string) (*domain.AttributeValue, error)
}
