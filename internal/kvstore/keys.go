package kvstore

// Keys persisted per installation.
const (
	KeyAuthSession     = "auth_session"
	KeySessionData     = "session_data"
	KeyLastActivity    = "last_activity"
	KeyDeviceInfo      = "device_info"
	KeyDeviceID        = "device_id"
	KeyMenuPreferences = "menu_preferences"
	KeyThemePreference = "user_theme_preference"
	KeyCustomColors    = "user_custom_colors"
	KeyLanguage        = "user-language"

	// KeyCartPrefix is followed by the user id.
	KeyCartPrefix = "cart_"
)
