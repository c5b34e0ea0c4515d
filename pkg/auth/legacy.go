package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// legacyConfig is the flat cookie file older setups kept as config.json
type legacyConfig struct {
	UserID    string `json:"ds_user_id"`
	SessionID string `json:"sessionid"`
	CSRFToken string `json:"csrftoken"`
	DeviceID  string `json:"mid"`
}

// LoadLegacyFile reads a config.json holding ds_user_id, sessionid,
// csrftoken and optionally mid, and returns it as an account labelled
// username. A missing mid is generated.
func LoadLegacyFile(path, username string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if username == "" {
		username = legacy.UserID
	}
	account := &Account{
		Username:  username,
		UserID:    strings.TrimSpace(legacy.UserID),
		SessionID: strings.TrimSpace(legacy.SessionID),
		CSRFToken: strings.TrimSpace(legacy.CSRFToken),
		DeviceID:  strings.TrimSpace(legacy.DeviceID),
	}
	if account.DeviceID == "" {
		account.DeviceID = NewDeviceID()
	}

	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return account, nil
}

// NewDeviceID returns a fresh value for the mid cookie
func NewDeviceID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
