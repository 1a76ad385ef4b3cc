package stats

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/stats.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store := NewStore(db, DefaultTableNames())
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func testEvent() Event {
	return Event{
		IdPEntityID:  "https://idp.example.org/idp",
		IdPName:      "Example IdP",
		SPIdentifier: "abc",
		SPName:       "Example SP",
		UserID:       "user@example.org",
	}
}

func TestRecordCreatesOneRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, testEvent()); err != nil {
		t.Fatalf("first record failed: %v", err)
	}

	var rows []loginRow
	if err := store.db.Table(store.tables.Stats).Find(&rows).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].Logins != 1 {
		t.Errorf("logins = %d, want 1", rows[0].Logins)
	}
	if rows[0].UserID != "user@example.org" {
		t.Errorf("user_id = %q", rows[0].UserID)
	}
}

func TestRecordIncrementsExistingRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, testEvent()); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	var rows []loginRow
	if err := store.db.Table(store.tables.Stats).Find(&rows).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single row after repeated logins, got %d", len(rows))
	}
	if rows[0].Logins != 3 {
		t.Errorf("logins = %d, want 3", rows[0].Logins)
	}
}

func TestRecordSeparatesUsers(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := testEvent()
	second := testEvent()
	second.UserID = "other@example.org"

	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var count int64
	if err := store.db.Table(store.tables.Stats).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected two rows for distinct users, got %d", count)
	}
}

func TestRecordRefreshesMapNames(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, testEvent()); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	renamed := testEvent()
	renamed.IdPName = "Renamed IdP"
	if err := store.Record(ctx, renamed); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var idp idpRow
	err := store.db.Table(store.tables.IdPMap).
		Where("identifier = ?", renamed.IdPEntityID).Take(&idp).Error
	if err != nil {
		t.Fatalf("idp lookup failed: %v", err)
	}
	if idp.Name != "Renamed IdP" {
		t.Errorf("idp name = %q, want refreshed name", idp.Name)
	}

	var count int64
	if err := store.db.Table(store.tables.IdPMap).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one idp map row, got %d", count)
	}
}

func TestRecordUsesEventDay(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	yesterday := testEvent()
	yesterday.Day = time.Now().Add(-24 * time.Hour)
	today := testEvent()

	if err := store.Record(ctx, yesterday); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := store.Record(ctx, today); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var count int64
	if err := store.db.Table(store.tables.Stats).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected separate rows per day, got %d", count)
	}
}

func TestCustomTableNames(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/custom.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store := NewStore(db, TableNames{Stats: "logins", IdPMap: "idps", SPMap: "sps"})
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := store.Record(context.Background(), testEvent()); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var count int64
	if err := db.Table("logins").Count(&count).Error; err != nil {
		t.Fatalf("count on custom table failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one row in custom table, got %d", count)
	}
}
