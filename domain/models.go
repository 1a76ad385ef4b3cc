// Package domain holds the core models shared by the pre-authorization
// filter pipeline: the requesting client, the facility it maps to, the
// authenticated end-user, and the per-request FilterContext aggregate.
package domain

import "strconv"

// Client is an OAuth2/OIDC relying-party registration, resolved once per
// request from the protocol request's client_id parameter.
type Client struct {
	ID   string
	Name string
}

// Facility is a registered downstream service instance in the identity
// federation. It is distinct from the OAuth2 client record: a client maps
// to at most one facility, and the mapping is resolved best-effort.
type Facility struct {
	ID          string
	Name        string
	Description string
}

// User is the authenticated end-user, identified by a stable attribute
// from the upstream identity assertion. It may be absent for
// unauthenticated flows (e.g. device-code checks).
type User struct {
	ID string
}

// AttributeValue wraps a facility attribute value of unknown dynamic type,
// as returned by the federation adapter.
type AttributeValue struct {
	Value any
}

// AsBool interprets the value as a boolean. String values "true"/"false"
// are accepted; anything else evaluates to false.
func (v *AttributeValue) AsBool() bool {
	if v == nil {
		return false
	}
	switch val := v.Value.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	}
	return false
}

// AsString interprets the value as a string, returning "" for non-strings.
func (v *AttributeValue) AsString() string {
	if v == nil {
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	return ""
}

// FilterContext is the immutable per-request aggregate passed to every
// filter in the pipeline. Any of the three parts may be nil. It is
// constructed exactly once by the resolver; filters read it, they do not
// write it.
type FilterContext struct {
	client   *Client
	facility *Facility
	user     *User
}

// NewFilterContext builds a context from whatever the resolver could
// determine. Nil arguments are valid and mean "absent".
func NewFilterContext(client *Client, facility *Facility, user *User) *FilterContext {
	return &FilterContext{client: client, facility: facility, user: user}
}

func (c *FilterContext) Client() *Client     { return c.client }
func (c *FilterContext) Facility() *Facility { return c.facility }
func (c *FilterContext) User() *User         { return c.user }

// HasClient reports whether a client record was resolved.
func (c *FilterContext) HasClient() bool { return c.client != nil && c.client.ID != "" }

// HasFacility reports whether a facility with a usable identifier was
// resolved.
func (c *FilterContext) HasFacility() bool { return c.facility != nil && c.facility.ID != "" }

// HasUser reports whether an authenticated user was resolved.
func (c *FilterContext) HasUser() bool { return c.user != nil && c.user.ID != "" }
