package filters

import (
	"context"
	"errors"
	"net/http"

	"github.com/getkayan/authproc/adapters"
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/logger"
	"github.com/getkayan/authproc/oauth2"
	"go.uber.org/zap"
)

// Resolver turns a raw HTTP request into the FilterContext every filter
// receives: the requesting client, the facility it maps to, and the
// authenticated end-user. Resolution is fresh per request; client and
// facility mappings can change, so nothing is cached.
type Resolver struct {
	clients    oauth2.ClientStore
	adapter    adapters.Adapter
	assertions AssertionSource
	userAttr   string
}

func NewResolver(clients oauth2.ClientStore, adapter adapters.Adapter, assertions AssertionSource, userAttr string) *Resolver {
	return &Resolver{
		clients:    clients,
		adapter:    adapter,
		assertions: assertions,
		userAttr:   userAttr,
	}
}

// Resolve never fails: every lookup degrades to "absent". The facility
// lookup in particular may hit a remote registry and is strictly
// best-effort.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) *domain.FilterContext {
	client := res.resolveClient(ctx, r)

	var facility *domain.Facility
	if client != nil && client.ID != "" {
		f, err := res.adapter.GetFacilityByClientID(ctx, client.ID)
		if err != nil {
			logger.Log.Warn("could not fetch facility for client",
				zap.String("client_id", client.ID),
				zap.Error(err),
			)
		} else {
			facility = f
		}
	}

	var user *domain.User
	if id := res.assertions.AttributeValue(r, res.userAttr); id != "" {
		user = &domain.User{ID: id}
	}

	return domain.NewFilterContext(client, facility, user)
}

func (res *Resolver) resolveClient(ctx context.Context, r *http.Request) *domain.Client {
	clientID := r.FormValue("client_id")
	if clientID == "" {
		return nil
	}

	rec, err := res.clients.GetClient(ctx, clientID)
	if err != nil {
		if !errors.Is(err, oauth2.ErrClientNotFound) {
			logger.Log.Warn("client registry lookup failed",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
		}
		return nil
	}
	return &domain.Client{ID: rec.ID, Name: rec.Name}
}
