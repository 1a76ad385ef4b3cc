package session

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Marker is the persisted form of a dedup marker.
type Marker struct {
	SID       string    `gorm:"primaryKey;column:sid"`
	Filter    string    `gorm:"primaryKey;column:filter"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (Marker) TableName() string { return "session_markers" }

// GormMarkerStore persists markers in the shared database so markers
// survive restarts and are visible across gateway instances.
type GormMarkerStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewGormMarkerStore(db *gorm.DB, ttl time.Duration) *GormMarkerStore {
	return &GormMarkerStore{db: db, ttl: ttl}
}

// AutoMigrate creates the marker table.
func (s *GormMarkerStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Marker{})
}

func (s *GormMarkerStore) Set(ctx context.Context, sid, filter string) error {
	m := Marker{SID: sid, Filter: filter, ExpiresAt: time.Now().Add(s.ttl)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sid"}, {Name: "filter"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&m).Error
}

func (s *GormMarkerStore) Consume(ctx context.Context, sid, filter string) (bool, error) {
	// A single DELETE is the atomic read-and-clear: RowsAffected tells us
	// whether a live marker was present.
	res := s.db.WithContext(ctx).
		Where("sid = ? AND filter = ? AND expires_at > ?", sid, filter, time.Now()).
		Delete(&Marker{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
