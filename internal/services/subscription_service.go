package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novaocc/cora/internal/models"
	apperrors "github.com/novaocc/cora/pkg/errors"
)

// SubscriptionKeys carries the browser-provided encryption material.
type SubscriptionKeys struct {
	P256dh string
	Auth   string
}

// UpsertSubscriptionInput defines the payload for registering an endpoint.
type UpsertSubscriptionInput struct {
	Endpoint string
	Keys     SubscriptionKeys
}

// SubscriptionService is the owner-scoped write side of the push registry.
// Every operation is bound to the calling owner; reading across owners is the
// SubscriptionBroker's job and deliberately lives on a separate type.
type SubscriptionService struct {
	db *gorm.DB
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(db *gorm.DB) (*SubscriptionService, error) {
	if db == nil {
		return nil, errors.New("subscription service: db is required")
	}
	return &SubscriptionService{db: db}, nil
}

// Upsert stores or refreshes a subscription keyed on its endpoint URL.
// Browsers rotate keys for an existing endpoint, so a conflicting endpoint
// updates the stored keys in place rather than creating a second row.
func (s *SubscriptionService) Upsert(ctx context.Context, ownerID string, input UpsertSubscriptionInput) (*models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	endpoint := strings.TrimSpace(input.Endpoint)
	if endpoint == "" {
		return nil, apperrors.NewBadRequest("subscription endpoint is required")
	}

	p256dh := strings.TrimSpace(input.Keys.P256dh)
	auth := strings.TrimSpace(input.Keys.Auth)
	if p256dh == "" || auth == "" {
		return nil, apperrors.NewBadRequest("subscription keys p256dh and auth are required")
	}

	sub := models.PushSubscription{
		OwnerID:  ownerID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "p256dh", "auth", "updated_at"}),
		}).
		Create(&sub).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to save subscription")
	}

	// Reload so the conflict path returns the stored row, not the candidate.
	var stored models.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		First(&stored).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to load subscription")
	}

	return &stored, nil
}

// RemoveByOwner deletes every subscription belonging to the supplied owner
// and reports how many rows were removed. Rows of other owners are never
// touched.
func (s *SubscriptionService) RemoveByOwner(ctx context.Context, ownerID string) (int64, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, apperrors.ErrUnauthorized
	}

	result := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.PushSubscription{})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "failed to unsubscribe")
	}

	return result.RowsAffected, nil
}

// RemoveByID deletes one subscription. An already absent row is a no-op so
// that duplicate cleanup between racing fan-out cycles stays safe.
func (s *SubscriptionService) RemoveByID(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("subscription service: remove by id: %w", err)
	}

	return nil
}

// SubscriptionBroker is the system-scoped read capability over the whole
// registry. It is constructed only in the fan-out wiring path; per-user
// handlers never see it.
type SubscriptionBroker struct {
	db *gorm.DB
}

// NewSubscriptionBroker constructs the elevated registry reader.
func NewSubscriptionBroker(db *gorm.DB) (*SubscriptionBroker, error) {
	if db == nil {
		return nil, errors.New("subscription broker: db is required")
	}
	return &SubscriptionBroker{db: db}, nil
}

// ListAll returns every registered subscription across all owners.
func (b *SubscriptionBroker) ListAll(ctx context.Context) ([]models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	var subs []models.PushSubscription
	if err := b.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("subscription broker: list subscriptions: %w", err)
	}

	return subs, nil
}

// Count returns the number of registered subscriptions.
func (b *SubscriptionBroker) Count(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := b.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("subscription broker: count subscriptions: %w", err)
	}

	return count, nil
}
