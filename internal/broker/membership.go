// Package broker resolves the tenant and ISMS role of an authenticated caller
// whose token does not carry them.
package broker

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nciso/server/internal/auth"
	"nciso/server/internal/db"
	"nciso/server/internal/observability"
)

// ErrNoMembership means the caller belongs to no tenant (or not to the requested one).
var ErrNoMembership = errors.New("user has no tenant membership")

// MembershipBroker looks up tenant_members rows with a TTL cache. When the
// store is unreachable it serves the last known membership.
type MembershipBroker struct {
	db    *gorm.DB
	fresh *cache.Cache
	stale *cache.Cache
}

// NewMembershipBroker returns a broker over gdb caching entries for ttl.
func NewMembershipBroker(gdb *gorm.DB, ttl time.Duration) *MembershipBroker {
	return &MembershipBroker{
		db:    gdb,
		fresh: cache.New(ttl, 2*ttl),
		stale: cache.New(cache.NoExpiration, 0),
	}
}

func key(userID, tenantID string) string {
	return userID + "|" + tenantID
}

// Resolve fills in TenantID and Role. A token that already names both is
// returned unchanged. A token role, when present, wins over the stored one.
func (b *MembershipBroker) Resolve(ctx context.Context, id auth.Identity) (auth.Identity, error) {
	if id.TenantID != "" && id.Role != "" {
		return id, nil
	}
	if b == nil || b.db == nil {
		return id, ErrNoMembership
	}

	m, err := b.lookup(ctx, id.UserID, id.TenantID)
	if err != nil {
		return id, err
	}
	if id.TenantID == "" {
		id.TenantID = m.TenantID
	}
	if id.Role == "" {
		id.Role = m.Role
	}
	return id, nil
}

func (b *MembershipBroker) lookup(ctx context.Context, userID, tenantID string) (db.TenantMember, error) {
	k := key(userID, tenantID)
	if v, ok := b.fresh.Get(k); ok {
		return v.(db.TenantMember), nil
	}

	m, err := b.fetch(ctx, userID, tenantID)
	if errors.Is(err, db.ErrNotFound) {
		return db.TenantMember{}, ErrNoMembership
	}
	if err != nil {
		if v, ok := b.stale.Get(k); ok {
			observability.L().Warn("membership: using stale cache", zap.String("user_id", userID), zap.Error(err))
			return v.(db.TenantMember), nil
		}
		return db.TenantMember{}, err
	}

	b.fresh.SetDefault(k, *m)
	b.stale.Set(k, *m, cache.NoExpiration)
	return *m, nil
}

func (b *MembershipBroker) fetch(ctx context.Context, userID, tenantID string) (*db.TenantMember, error) {
	gdb := b.db.WithContext(ctx)
	if tenantID != "" {
		return db.FindTenantMembership(gdb, userID, tenantID)
	}
	return db.FindMembership(gdb, userID)
}

// Invalidate drops every cached membership of userID.
func (b *MembershipBroker) Invalidate(userID string) {
	for k := range b.fresh.Items() {
		if len(k) > len(userID) && k[:len(userID)+1] == userID+"|" {
			b.fresh.Delete(k)
			b.stale.Delete(k)
		}
	}
}
