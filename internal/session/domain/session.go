package domain

import "time"

// UserRef is the user snapshot held by a session. The session stores it as given; the auth layer owns validation.
type UserRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Phone     string `json:"phone,omitempty"`
	AvatarURI string `json:"avatarUri,omitempty"`
}

// Record is the per-installation session persisted under session_data.
// It is never deleted, only reset: a cleared session keeps its device id and last activity.
type Record struct {
	User         *UserRef `json:"user"`
	DeviceID     string   `json:"deviceId"`
	LastActivity int64    `json:"lastActivity"` // unix ms
	IsActive     bool     `json:"isActive"`
}

// LastActivityTime returns LastActivity as a time.
func (r *Record) LastActivityTime() time.Time {
	return time.UnixMilli(r.LastActivity).UTC()
}

// DeviceInfo describes this installation. Persisted under device_info.
type DeviceInfo struct {
	DeviceID  string `json:"deviceId"`
	Platform  string `json:"platform"`
	LastLogin string `json:"lastLogin"` // RFC 3339
	UserAgent string `json:"userAgent,omitempty"`
}
