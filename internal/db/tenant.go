package db

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the query matched zero rows inside the caller's tenant.
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured means no store handle was supplied.
	ErrNotConfigured = errors.New("store not configured")
	// ErrTenantRequired means a client was requested without a tenant id.
	ErrTenantRequired = errors.New("tenant_id is required")
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ClampLimit maps a requested page size onto [1, MaxLimit], using DefaultLimit for n <= 0.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// TenantClient binds a store handle to one tenant. Every query it issues
// carries an equality filter on tenant_id, and every insert gets the bound
// tenant id regardless of what the caller put in the row.
type TenantClient struct {
	db       *gorm.DB
	tenantID string
	now      func() time.Time
}

// NewTenantClient returns a client for tenantID over gdb.
func NewTenantClient(gdb *gorm.DB, tenantID string) (*TenantClient, error) {
	if gdb == nil {
		return nil, ErrNotConfigured
	}
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	return &TenantClient{db: gdb, tenantID: tenantID, now: time.Now}, nil
}

// TenantID returns the bound tenant.
func (c *TenantClient) TenantID() string { return c.tenantID }

// Now returns the client's clock reading in UTC.
func (c *TenantClient) Now() time.Time { return c.now().UTC() }

func (c *TenantClient) scoped(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Where("tenant_id = ?", c.tenantID)
}

// newest orders rows so repeated reads with the same filters are identical.
func newest(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id DESC")
}

func listPage[T any](q *gorm.DB, limit int) ([]T, error) {
	rows := []T{}
	if err := newest(q).Limit(ClampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func getByID[T any](ctx context.Context, c *TenantClient, id string) (*T, error) {
	var row T
	err := c.scoped(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// immutable columns are dropped from partial updates.
var immutable = []string{"id", "tenant_id", "created_at", "updated_at"}

func updateByID[T any](ctx context.Context, c *TenantClient, id string, updates map[string]any) (*T, error) {
	clean := make(map[string]any, len(updates))
	for k, v := range updates {
		clean[k] = v
	}
	for _, k := range immutable {
		delete(clean, k)
	}
	if len(clean) > 0 {
		var model T
		res := c.scoped(ctx).Model(&model).Where("id = ?", id).Updates(clean)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return getByID[T](ctx, c, id)
}

func deleteByID[T any](ctx context.Context, c *TenantClient, id string) error {
	var model T
	res := c.scoped(ctx).Where("id = ?", id).Delete(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// exists reports whether a row with id is visible in the tenant.
func exists[T any](ctx context.Context, c *TenantClient, id string) error {
	var n int64
	var model T
	if err := c.scoped(ctx).Model(&model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
