package oauth2

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testStore(t *testing.T) *GormClientStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/clients.db"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store := NewGormClientStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestClientRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	client := &Client{
		ID:           "abc",
		Name:         "Example SP",
		RedirectURIs: []string{"https://sp.example.org/callback"},
		Scopes:       []string{"openid", "profile"},
	}
	if err := store.CreateClient(ctx, client); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetClient(ctx, "abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Example SP" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.RedirectURIs) != 1 || got.RedirectURIs[0] != "https://sp.example.org/callback" {
		t.Errorf("redirect URIs = %v", got.RedirectURIs)
	}
}

func TestGetClientNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetClient(context.Background(), "ghost")
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestDeleteClient(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateClient(ctx, &Client{ID: "abc"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.DeleteClient(ctx, "abc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetClient(ctx, "abc"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound after delete, got %v", err)
	}
}
