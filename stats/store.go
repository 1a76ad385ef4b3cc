// Package stats records login events into the proxy statistics schema:
// two identifier-to-name mapping tables (identity providers and service
// providers) and one daily fact table keyed by (day, idp, sp, user).
package stats

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event is one login to record.
type Event struct {
	IdPEntityID  string
	IdPName      string
	SPIdentifier string
	SPName       string
	UserID       string
	Day          time.Time
}

// Recorder is what the statistics filter depends on.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// TableNames allows deployments to point the store at existing tables.
type TableNames struct {
	Stats  string
	IdPMap string
	SPMap  string
}

// DefaultTableNames matches the proxy statistics schema shipped with the
// gateway.
func DefaultTableNames() TableNames {
	return TableNames{
		Stats:  "proxy_stats",
		IdPMap: "proxy_stats_idp",
		SPMap:  "proxy_stats_sp",
	}
}

type idpRow struct {
	IdPID      int64  `gorm:"column:idp_id;primaryKey;autoIncrement"`
	Identifier string `gorm:"column:identifier;uniqueIndex"`
	Name       string `gorm:"column:name"`
}

type spRow struct {
	SPID       int64  `gorm:"column:sp_id;primaryKey;autoIncrement"`
	Identifier string `gorm:"column:identifier;uniqueIndex"`
	Name       string `gorm:"column:name"`
}

type loginRow struct {
	Day    time.Time `gorm:"column:day;type:date;uniqueIndex:idx_login,priority:1"`
	IdPID  int64     `gorm:"column:idp_id;uniqueIndex:idx_login,priority:2"`
	SPID   int64     `gorm:"column:sp_id;uniqueIndex:idx_login,priority:3"`
	UserID string    `gorm:"column:user_id;uniqueIndex:idx_login,priority:4"`
	Logins int64     `gorm:"column:logins"`
}

// Store implements Recorder on a relational database.
//
// Each Record call runs as independent statements, not one enclosing
// transaction: map-table upserts are tolerated to fail individually, and
// the fact-table write is a single atomic insert-or-increment, so there is
// no cross-statement race to serialize and lock hold-times stay short.
type Store struct {
	db     *gorm.DB
	tables TableNames
}

func NewStore(db *gorm.DB, tables TableNames) *Store {
	if tables.Stats == "" {
		tables = DefaultTableNames()
	}
	return &Store{db: db, tables: tables}
}

// AutoMigrate creates the three statistics tables under the configured
// names.
func (s *Store) AutoMigrate() error {
	if err := s.db.Table(s.tables.IdPMap).AutoMigrate(&idpRow{}); err != nil {
		return err
	}
	if err := s.db.Table(s.tables.SPMap).AutoMigrate(&spRow{}); err != nil {
		return err
	}
	return s.db.Table(s.tables.Stats).AutoMigrate(&loginRow{})
}

// Record stores one login. Map rows are upserted first (insert-if-absent,
// else refresh the display name); surrogate keys are then resolved and the
// fact row is atomically inserted or incremented. A failed surrogate-key
// resolution aborts the attempt; map rows already written stay written.
func (s *Store) Record(ctx context.Context, e Event) error {
	if err := s.upsertIdP(ctx, e.IdPEntityID, e.IdPName); err != nil {
		return fmt.Errorf("stats: idp map upsert: %w", err)
	}
	if err := s.upsertSP(ctx, e.SPIdentifier, e.SPName); err != nil {
		return fmt.Errorf("stats: sp map upsert: %w", err)
	}

	idpID, err := s.idpID(ctx, e.IdPEntityID)
	if err != nil {
		return fmt.Errorf("stats: resolving idp key for %q: %w", e.IdPEntityID, err)
	}
	spID, err := s.spID(ctx, e.SPIdentifier)
	if err != nil {
		return fmt.Errorf("stats: resolving sp key for %q: %w", e.SPIdentifier, err)
	}

	day := e.Day
	if day.IsZero() {
		day = time.Now()
	}
	day = day.Truncate(24 * time.Hour)

	row := loginRow{Day: day, IdPID: idpID, SPID: spID, UserID: e.UserID, Logins: 1}
	err = s.db.WithContext(ctx).Table(s.tables.Stats).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}, {Name: "idp_id"}, {Name: "sp_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"logins": gorm.Expr("logins + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("stats: recording login: %w", err)
	}
	return nil
}

func (s *Store) upsertIdP(ctx context.Context, identifier, name string) error {
	row := idpRow{Identifier: identifier, Name: name}
	return s.db.WithContext(ctx).Table(s.tables.IdPMap).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
}

func (s *Store) upsertSP(ctx context.Context, identifier, name string) error {
	row := spRow{Identifier: identifier, Name: name}
	return s.db.WithContext(ctx).Table(s.tables.SPMap).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
}

func (s *Store) idpID(ctx context.Context, identifier string) (int64, error) {
	var row idpRow
	err := s.db.WithContext(ctx).Table(s.tables.IdPMap).
		Where("identifier = ?", identifier).Take(&row).Error
	return row.IdPID, err
}

func (s *Store) spID(ctx context.Context, identifier string) (int64, error) {
	var row spRow
	err := s.db.WithContext(ctx).Table(s.tables.SPMap).
		Where("identifier = ?", identifier).Take(&row).Error
	return row.SPID, err
}
