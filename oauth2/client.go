// Package oauth2 holds the relying-party client registry consumed by the
// pre-authorization pipeline. The pipeline only ever reads client records;
// provisioning happens elsewhere.
package oauth2

import (
	"context"
	"errors"
)

// ErrClientNotFound is returned when no client exists for an identifier.
var ErrClientNotFound = errors.New("oauth2: client not found")

// Client represents an OAuth2 client application.
type Client struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	Secret       string   `json:"-"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris" gorm:"type:text;serializer:json"`
	Scopes       []string `json:"scopes" gorm:"type:text;serializer:json"`
}

// ClientStore defines the read surface the pipeline needs plus the
// provisioning operations used by deployments that manage clients here.
type ClientStore interface {
	GetClient(ctx context.Context, id string) (*Client, error)
	CreateClient(ctx context.Context, client *Client) error
	DeleteClient(ctx context.Context, id string) error
}
