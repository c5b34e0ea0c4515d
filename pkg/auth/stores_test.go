package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(testAccount("alice")))
	require.NoError(t, store.Store(testAccount("bob")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second store over the same directory reuses the saved passphrase
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "XYZDEVICE", got.DeviceID)

	accounts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, "bob", accounts[1].Username)

	require.NoError(t, reopened.Delete("alice"))
	assert.False(t, reopened.Exists("alice"))
	assert.ErrorIs(t, reopened.Delete("alice"), ErrCredentialsNotFound)

	require.NoError(t, reopened.Delete("bob"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "correct horse")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("alice")))

	t.Setenv(EnvPassphrase, "battery staple")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = other.Retrieve("alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt")
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.Store(testAccount("alice")))
	require.NoError(t, store.Store(testAccount("bob")))
	assert.True(t, store.Exists("alice"))

	got, err := store.Retrieve("bob")
	require.NoError(t, err)
	assert.Equal(t, "1234567", got.UserID)

	accounts, err = store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].Username)

	require.NoError(t, store.Delete("alice"))
	assert.False(t, store.Exists("alice"))
	assert.ErrorIs(t, store.Delete("alice"), ErrCredentialsNotFound)
	_, err = store.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Delete("bob"))
	accounts, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	assert.ErrorIs(t, store.Store(&Account{}), ErrInvalidCredentials)
	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewManagerUsesDirectory(t *testing.T) {
	keyring.MockInitWithError(keyring.ErrUnsupportedPlatform)
	defer keyring.MockInit()
	clearEnv(t)
	t.Setenv(EnvPassphrase, "")

	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.Store(testAccount("alice")))
	_, err = os.Stat(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	got, err := manager.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestLoadLegacyFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		username string
		wantUser string
		wantMID  string
		wantErr  bool
	}{
		{
			name:     "full file",
			content:  `{"ds_user_id": "42", "sessionid": "s%3A1", "csrftoken": "tok", "mid": "MID1"}`,
			username: "main",
			wantUser: "main",
			wantMID:  "MID1",
		},
		{
			name:     "mid generated and label from user id",
			content:  `{"ds_user_id": "42", "sessionid": "s", "csrftoken": "tok"}`,
			wantUser: "42",
		},
		{
			name:    "missing session",
			content: `{"ds_user_id": "42", "csrftoken": "tok"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: `ds_user_id=42`,
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "config"+string(rune('a'+i))+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			account, err := LoadLegacyFile(path, tt.username)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, account.Username)
			assert.Equal(t, "42", account.UserID)
			if tt.wantMID != "" {
				assert.Equal(t, tt.wantMID, account.DeviceID)
			} else {
				assert.Len(t, account.DeviceID, 32)
			}
		})
	}

	_, err := LoadLegacyFile(filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)
}
