package authproc

import (
	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/filters"
	"github.com/getkayan/authproc/oauth2"
	"github.com/getkayan/authproc/session"
	"gorm.io/gorm"
)

// NewDefaultPipeline assembles a pipeline with the built-in filter kinds,
// a gorm-backed client registry and marker store, and the gate/resolver
// configured from cfg. Deployments needing custom filter kinds or stores
// wire the pieces directly instead.
func NewDefaultPipeline(cfg *config.Config, db *gorm.DB, deps filters.Deps) (*filters.Pipeline, error) {
	if deps.Clients == nil {
		store := oauth2.NewGormClientStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		deps.Clients = store
	}
	if deps.Markers == nil {
		store := session.NewGormMarkerStore(db, cfg.SessionTTL)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		deps.Markers = store
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL)
	}
	if deps.Assertions == nil {
		deps.Assertions = filters.HeaderAssertionSource{}
	}
	if deps.DB == nil {
		deps.DB = db
	}
	if deps.Issuer == "" {
		deps.Issuer = cfg.Issuer
	}
	if deps.WarningPath == "" {
		deps.WarningPath = cfg.WarningPath
	}

	built, err := filters.BuildAll(cfg.Filters, filters.DefaultRegistry(), deps)
	if err != nil {
		return nil, err
	}

	gate := filters.NewGate(cfg.AuthorizePath, cfg.DeviceCodePath)
	resolver := filters.NewResolver(deps.Clients, deps.Adapter, deps.Assertions, cfg.UserIdentifierAttribute)
	return filters.NewPipeline(gate, resolver, built), nil
}
