package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restaurant-ordering-api/models"
)

// Denylist remembers revoked token ids until they expire.
type Denylist interface {
	Revoke(ctx context.Context, jti string, userID uint, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// GormDenylist keeps revoked ids in the revoked_tokens table.
type GormDenylist struct {
	db *gorm.DB
}

func NewGormDenylist(db *gorm.DB) *GormDenylist {
	return &GormDenylist{db: db}
}

func (d *GormDenylist) Revoke(ctx context.Context, jti string, userID uint, until time.Time) error {
	row := models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: until}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

func (d *GormDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("auth: lookup revoked token: %w", err)
	}
	return n > 0, nil
}

// Purge drops rows for tokens that have expired on their own.
func (d *GormDenylist) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

// RedisDenylist stores revoked ids as keys that expire with the token.
type RedisDenylist struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, prefix: "revoked_token:"}
}

// ConnectRedis opens a client and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("auth: redis ping: %w", err)
	}
	return rdb, nil
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, userID uint, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, d.prefix+jti, userID, ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.rdb.Get(ctx, d.prefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("auth: lookup revoked token: %w", err)
	}
}
