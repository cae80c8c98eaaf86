package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/backend/internal/domain/credential"
	"github.com/opsdesk/backend/internal/infrastructure/persistence/models"
)

// GormMerchantTokenRepository implements MerchantTokenRepository using GORM.
// The conditional updates here are the entire locking mechanism: the row
// in the database is the source of truth, so exclusion holds across
// server instances.
type GormMerchantTokenRepository struct {
	db *gorm.DB
}

// NewGormMerchantTokenRepository creates a new GormMerchantTokenRepository
func NewGormMerchantTokenRepository(db *gorm.DB) *GormMerchantTokenRepository {
	return &GormMerchantTokenRepository{db: db}
}

// FindByMerchant finds a merchant's token record
func (r *GormMerchantTokenRepository) FindByMerchant(ctx context.Context, merchantID string) (*credential.MerchantToken, error) {
	var model models.MerchantTokenModel
	if err := r.db.WithContext(ctx).First(&model, "merchant_id = ?", merchantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrTokenNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save replaces the full record in a single row write
func (r *GormMerchantTokenRepository) Save(ctx context.Context, token *credential.MerchantToken) error {
	model := models.MerchantTokenModelFromDomain(token)
	return r.db.WithContext(ctx).Save(model).Error
}

// TryAcquireLock takes the refresh lock with a single conditional update.
// Concurrent callers cannot both observe success; exactly one wins.
func (r *GormMerchantTokenRepository) TryAcquireLock(ctx context.Context, merchantID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MerchantTokenModel{}).
		Where("merchant_id = ? AND is_refreshing = FALSE", merchantID).
		Updates(map[string]any{
			"is_refreshing":     true,
			"last_refreshed_at": now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ForceAcquireLock reclaims an abandoned lock. The update is conditional
// on the lock still being held with last_refreshed_at at or before
// staleBefore, so a holder that finished in the meantime (or a competing
// overrider that already won) invalidates the reclaim.
func (r *GormMerchantTokenRepository) ForceAcquireLock(ctx context.Context, merchantID string, staleBefore, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MerchantTokenModel{}).
		Where("merchant_id = ? AND is_refreshing = TRUE AND last_refreshed_at <= ?", merchantID, staleBefore).
		Updates(map[string]any{
			"last_refreshed_at": now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseLock clears the lock flag. A failed refresh increments the
// consecutive-failure counter in the same write; a no-op release resets it.
func (r *GormMerchantTokenRepository) ReleaseLock(ctx context.Context, merchantID string, success bool) error {
	now := time.Now()
	values := map[string]any{
		"is_refreshing": false,
		"updated_at":    now,
	}
	if success {
		values["refresh_attempts"] = 0
	} else {
		values["refresh_attempts"] = gorm.Expr("refresh_attempts + 1")
	}

	result := r.db.WithContext(ctx).
		Model(&models.MerchantTokenModel{}).
		Where("merchant_id = ?", merchantID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return credential.ErrTokenNotFound
	}
	return nil
}

// FindDueForRefresh returns records inside the refresh window of expiry
// or not refreshed since forcedBefore, skipping rows already being
// refreshed
func (r *GormMerchantTokenRepository) FindDueForRefresh(ctx context.Context, now time.Time, refreshWindow time.Duration, forcedBefore time.Time) ([]credential.MerchantToken, error) {
	var tokenModels []models.MerchantTokenModel
	if err := r.db.WithContext(ctx).
		Where("is_refreshing = FALSE AND (expires_at <= ? OR last_refreshed_at <= ?)", now.Add(refreshWindow), forcedBefore).
		Order("expires_at ASC").
		Find(&tokenModels).Error; err != nil {
		return nil, err
	}
	tokens := make([]credential.MerchantToken, len(tokenModels))
	for i, model := range tokenModels {
		tokens[i] = *model.ToDomain()
	}
	return tokens, nil
}

// Ensure GormMerchantTokenRepository implements MerchantTokenRepository
var _ credential.MerchantTokenRepository = (*GormMerchantTokenRepository)(nil)
