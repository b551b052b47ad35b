package model

import "time"

// AppSettings is the single-row branding record shown by clients.
type AppSettings struct {
	AppName        string    `json:"app_name"`
	LogoURL        string    `json:"logo_url,omitempty"`
	ThemePrimary   string    `json:"theme_primary"`
	ThemeSecondary string    `json:"theme_secondary"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func DefaultAppSettings() AppSettings {
	return AppSettings{
		AppName:        "Private Trader",
		ThemePrimary:   "#007bff",
		ThemeSecondary: "#1a1a1a",
	}
}
