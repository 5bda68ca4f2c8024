package domain

import "time"

// Setting is one operator-tunable key-value override. Values are stored
// as strings and parsed by the settings service.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Settings keys the auth core consumes.
const (
	SettingAccessTokenExpireMinutes  = "auth.access_token_expire_minutes"
	SettingRefreshTokenExpireMinutes = "auth.refresh_token_expire_minutes"
)
