package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/folioworks/folio/internal/auth/domain"
	"github.com/folioworks/folio/internal/auth/store"
	"github.com/folioworks/folio/pkg/jwtx"
	"github.com/folioworks/folio/pkg/slogx"
)

// settingsCacheTTL bounds how stale an operator override can be. A
// fresh login may use a lifetime up to this much out of date, which is
// acceptable; hitting the settings table on every login is not.
const settingsCacheTTL = 30 * time.Second

// SettingsService resolves operator-tunable values with typed defaults.
// A missing row or a store error always falls back to the default;
// settings lookups must never fail a login.
type SettingsService struct {
	Store store.Store

	mu    sync.Mutex
	cache map[string]cachedSetting
}

type cachedSetting struct {
	value   string
	ok      bool
	fetched time.Time
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *SettingsService) AccessTokenTTL(ctx context.Context) time.Duration {
	return s.minutes(ctx, domain.SettingAccessTokenExpireMinutes, jwtx.DefaultAccessTokenTTL)
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *SettingsService) RefreshTokenTTL(ctx context.Context) time.Duration {
	return s.minutes(ctx, domain.SettingRefreshTokenExpireMinutes, jwtx.DefaultRefreshTokenTTL)
}

func (s *SettingsService) minutes(ctx context.Context, key string, def time.Duration) time.Duration {
	raw, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slogx.FromContext(ctx).Warn("ignoring malformed setting", "key", key, "value", raw)
		return def
	}
	return time.Duration(n) * time.Minute
}

func (s *SettingsService) lookup(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && time.Since(c.fetched) < settingsCacheTTL {
		s.mu.Unlock()
		return c.value, c.ok
	}
	s.mu.Unlock()

	setting, err := s.Store.Settings().GetSetting(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		// Treat a broken settings table as "no override". The error is
		// logged and the cached miss stops a hot retry loop.
		slogx.FromContext(ctx).Warn("settings lookup failed", "key", key, "err", err)
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string]cachedSetting)
	}
	s.cache[key] = cachedSetting{value: setting.Value, ok: found, fetched: time.Now()}
	s.mu.Unlock()

	return setting.Value, found
}
