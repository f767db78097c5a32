package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/session/domain"
)

// DeviceInfo returns this installation's device description, creating it on first use.
func (m *Manager) DeviceInfo(ctx context.Context) (*domain.DeviceInfo, error) {
	return m.deviceInfo(ctx, false)
}

// deviceInfo loads or creates device_info. With stampLogin the stored lastLogin is set to now.
func (m *Manager) deviceInfo(ctx context.Context, stampLogin bool) (*domain.DeviceInfo, error) {
	var info domain.DeviceInfo
	ok, err := m.store.GetJSON(ctx, kvstore.KeyDeviceInfo, &info)
	if err != nil && !errors.Is(err, kvstore.ErrCorrupt) {
		return nil, err
	}
	if err != nil {
		log.Printf("session: recreating unreadable device info: %v", err)
	}
	if ok && info.DeviceID != "" && !stampLogin {
		return &info, nil
	}
	if !ok || info.DeviceID == "" {
		id, err := m.deviceID(ctx)
		if err != nil {
			return nil, err
		}
		info = domain.DeviceInfo{
			DeviceID:  id,
			Platform:  m.cfg.Platform,
			UserAgent: m.cfg.UserAgent,
		}
	}
	info.LastLogin = m.clock.Now().UTC().Format(time.RFC3339)
	if err := m.store.SetJSON(ctx, kvstore.KeyDeviceInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// deviceID returns the persisted device id, generating device_<unixms>_<random> once.
func (m *Manager) deviceID(ctx context.Context) (string, error) {
	id, ok, err := m.store.GetString(ctx, kvstore.KeyDeviceID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	id = "device_" + strconv.FormatInt(m.nowMillis(), 10) + "_" + suffix
	if err := m.store.SetString(ctx, kvstore.KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// PlatformFromUserAgent maps a user agent to android, ios or web. Empty input is unknown.
func PlatformFromUserAgent(ua string) string {
	if ua == "" {
		return "unknown"
	}
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "ios"
	}
	return "web"
}
