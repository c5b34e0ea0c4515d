package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvUserID    = "IGSTORIES_USER_ID"
	EnvSessionID = "IGSTORIES_SESSION_ID"
	EnvCSRFToken = "IGSTORIES_CSRF_TOKEN"
	EnvDeviceID  = "IGSTORIES_DEVICE_ID"
	EnvUserAgent = "IGSTORIES_USER_AGENT"
)

const envAccount = "env"

// EnvironmentStore reads one read-only account from the environment
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds the account labelled "env" from IGSTORIES_* variables.
// The device id is optional and generated when unset.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	if username != "" && username != envAccount {
		return nil, ErrCredentialsNotFound
	}
	if !e.Exists(username) {
		return nil, ErrCredentialsNotFound
	}

	deviceID := os.Getenv(EnvDeviceID)
	if deviceID == "" {
		deviceID = NewDeviceID()
	}

	return &Account{
		Username:     envAccount,
		UserID:       os.Getenv(EnvUserID),
		SessionID:    os.Getenv(EnvSessionID),
		CSRFToken:    os.Getenv(EnvCSRFToken),
		DeviceID:     deviceID,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the required variables are set
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv(EnvUserID) != "" && os.Getenv(EnvSessionID) != "" && os.Getenv(EnvCSRFToken) != ""
}
