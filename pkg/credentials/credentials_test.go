package credentials

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const cookie = "SUB=_2A25LxyzAbCdEf; SUBP=0033WrSXqPxfM; XSRF-TOKEN=abc"

func TestHasSession(t *testing.T) {
	assert.True(t, HasSession(cookie))
	assert.True(t, HasSession("a=1; WBPSESS=xyz"))
	assert.False(t, HasSession("SUBP=1; XSRF-TOKEN=abc"))
	assert.False(t, HasSession(""))
}

func TestManagerWithKeyring(t *testing.T) {
	keyring.MockInit()
	store, err := NewKeyringStore()
	require.NoError(t, err)
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	require.NoError(t, manager.Store(&Account{Cookie: cookie, UserAgent: "TestAgent/1.0"}))
	assert.True(t, store.Exists(DefaultAccount))

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAccount, got.Name)
	assert.Equal(t, cookie, got.Cookie)
	assert.Equal(t, "TestAgent/1.0", got.UserAgent)
	assert.False(t, got.LastModified.IsZero())

	require.NoError(t, manager.Delete(""))
	_, err = manager.Retrieve(DefaultAccount)
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
	assert.True(t, errors.Is(manager.Delete(DefaultAccount), ErrCredentialsNotFound))
}

func TestStoreRejectsInvalidCookie(t *testing.T) {
	keyring.MockInit()
	store, err := NewKeyringStore()
	require.NoError(t, err)
	manager := NewManagerWithStores(store)

	assert.True(t, errors.Is(manager.Store(&Account{}), ErrInvalidCredentials))
	assert.True(t, errors.Is(manager.Store(&Account{Cookie: "foo=bar"}), ErrInvalidCredentials))
	assert.False(t, store.Exists(DefaultAccount))
}

func TestManagerFallsBackToEnvironment(t *testing.T) {
	keyring.MockInit()
	store, err := NewKeyringStore()
	require.NoError(t, err)
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	t.Setenv(EnvCookie, cookie)
	t.Setenv(EnvUserAgent, "EnvAgent")

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, cookie, got.Cookie)
	assert.Equal(t, "EnvAgent", got.UserAgent)

	env := NewEnvironmentStore()
	assert.True(t, env.Exists("anything"))
	assert.ErrorIs(t, env.Store(got), ErrStoreUnavailable)
	assert.ErrorIs(t, env.Delete("x"), ErrStoreUnavailable)
}

func TestStoreFallsThroughFailingStores(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	t.Cleanup(keyring.MockInit)

	_, err := NewKeyringStore()
	require.Error(t, err)

	enc, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"), "secret")
	require.NoError(t, err)
	manager := NewManagerWithStores(NewEnvironmentStore(), enc)

	require.NoError(t, manager.Store(&Account{Name: "work", Cookie: cookie}))
	assert.True(t, enc.Exists("work"))
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path, "test_passphrase_123")
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Name: "a", Cookie: cookie}))
	require.NoError(t, store.Store(&Account{Name: "b", Cookie: "SUB=other"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SUB=")

	got, err := store.Retrieve("a")
	require.NoError(t, err)
	assert.Equal(t, cookie, got.Cookie)

	wrong, err := NewEncryptedFileStore(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Retrieve("a")
	assert.Error(t, err)

	require.NoError(t, store.Delete("a"))
	_, err = store.Retrieve("a")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Delete("b"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with its last account")
	assert.ErrorIs(t, store.Delete("b"), ErrCredentialsNotFound)
}

func TestGeneratedPassphrasePersists(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	first, err := NewEncryptedFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, first.Store(&Account{Name: "a", Cookie: cookie}))

	second, err := NewEncryptedFileStore(path, "")
	require.NoError(t, err)
	got, err := second.Retrieve("a")
	require.NoError(t, err)
	assert.Equal(t, cookie, got.Cookie)

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSanitizeAccount(t *testing.T) {
	acc := &Account{Name: "a", Cookie: cookie}
	masked := SanitizeAccount(acc)
	assert.Equal(t, "a", masked.Name)
	assert.Equal(t, "SUB=...=abc", masked.Cookie)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestShowCookieGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieGuide(&buf)
	assert.Contains(t, buf.String(), "WEIBO_COOKIE")
	assert.Contains(t, buf.String(), "SUB=")
}
