package credential

import (
	"context"
	"sync"
	"time"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// memoryTokenRepo is a mutex-guarded in-memory repository with the same
// compare-and-swap semantics as the real conditional updates. It lets the
// concurrency tests exercise the lock protocol without a database.
type memoryTokenRepo struct {
	mu      sync.Mutex
	records map[string]*credential.MerchantToken

	saveCalls    int
	releaseCalls int
}

func newMemoryTokenRepo(records ...*credential.MerchantToken) *memoryTokenRepo {
	repo := &memoryTokenRepo{records: make(map[string]*credential.MerchantToken)}
	for _, r := range records {
		clone := *r
		repo.records[r.MerchantID] = &clone
	}
	return repo
}

func (r *memoryTokenRepo) FindByMerchant(_ context.Context, merchantID string) (*credential.MerchantToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[merchantID]
	if !ok {
		return nil, credential.ErrTokenNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *memoryTokenRepo) Save(_ context.Context, token *credential.MerchantToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *token
	r.records[token.MerchantID] = &clone
	r.saveCalls++
	return nil
}

func (r *memoryTokenRepo) TryAcquireLock(_ context.Context, merchantID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[merchantID]
	if !ok || record.IsRefreshing {
		return false, nil
	}
	record.IsRefreshing = true
	record.LastRefreshedAt = now
	return true, nil
}

func (r *memoryTokenRepo) ForceAcquireLock(_ context.Context, merchantID string, staleBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[merchantID]
	if !ok || !record.IsRefreshing || record.LastRefreshedAt.After(staleBefore) {
		return false, nil
	}
	record.LastRefreshedAt = now
	return true, nil
}

func (r *memoryTokenRepo) ReleaseLock(_ context.Context, merchantID string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[merchantID]
	if !ok {
		return credential.ErrTokenNotFound
	}
	record.IsRefreshing = false
	if success {
		record.RefreshAttempts = 0
	} else {
		record.RefreshAttempts++
	}
	r.releaseCalls++
	return nil
}

func (r *memoryTokenRepo) FindDueForRefresh(_ context.Context, now time.Time, refreshWindow time.Duration, forcedBefore time.Time) ([]credential.MerchantToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []credential.MerchantToken
	for _, record := range r.records {
		if record.IsRefreshing {
			continue
		}
		expiring := !record.ExpiresAt.After(now.Add(refreshWindow))
		forced := !record.LastRefreshedAt.After(forcedBefore)
		if expiring || forced {
			due = append(due, *record)
		}
	}
	return due, nil
}

// get returns the stored record for assertions.
func (r *memoryTokenRepo) get(merchantID string) credential.MerchantToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[merchantID]
}

var _ credential.MerchantTokenRepository = (*memoryTokenRepo)(nil)
