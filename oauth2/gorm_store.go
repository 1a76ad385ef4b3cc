package oauth2

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormClientStore persists client registrations with GORM.
type GormClientStore struct {
	db *gorm.DB
}

func NewGormClientStore(db *gorm.DB) *GormClientStore {
	return &GormClientStore{db: db}
}

// AutoMigrate creates the clients table.
func (s *GormClientStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Client{})
}

func (s *GormClientStore) GetClient(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *GormClientStore) CreateClient(ctx context.Context, client *Client) error {
	return s.db.WithContext(ctx).Create(client).Error
}

func (s *GormClientStore) DeleteClient(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Client{}, "id = ?", id).Error
}
