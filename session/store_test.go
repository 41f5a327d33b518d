package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/pkg/errors"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Token(ctx)
	assert.True(t, errors.IsAuth(err))

	token := signedToken(t, time.Hour)
	user := &User{ID: 42, Name: "Cherry", Email: "cherry@example.com"}
	require.NoError(t, store.SetAuth(ctx, token, user))

	got, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	gotUser, err := store.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), gotUser.ID)
	assert.Equal(t, "Cherry", gotUser.Name)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Token(ctx)
	assert.True(t, errors.IsAuth(err))
	_, err = store.User(ctx)
	assert.True(t, errors.IsAuth(err))
}

func TestMemoryStoreExpiredTokenReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetAuth(ctx, signedToken(t, -time.Hour), &User{ID: 1}))

	_, err := store.Token(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestMemoryStoreOpaqueTokenAccepted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetAuth(ctx, "opaque-session-token", nil))

	got, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-session-token", got)
}

func TestMemoryStoreUserCopyIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetAuth(ctx, signedToken(t, time.Hour), &User{ID: 7, Name: "Sam"}))

	first, err := store.User(ctx)
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := store.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sam", second.Name)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	_, err := store.Token(ctx)
	assert.True(t, errors.IsAuth(err))

	token := signedToken(t, time.Hour)
	require.NoError(t, store.SetAuth(ctx, token, &User{ID: 3, Name: "Riley"}))

	// Reopen at the same path; the session must survive the process
	reopened := NewFileStore(path)
	got, err := reopened.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	user, err := reopened.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Riley", user.Name)

	require.NoError(t, reopened.Clear(ctx))
	_, err = store.Token(ctx)
	assert.True(t, errors.IsAuth(err))
}

func TestFileStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
}

func TestFileStoreExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, store.SetAuth(ctx, signedToken(t, -time.Minute), &User{ID: 9}))

	_, err := store.Token(ctx)
	assert.True(t, errors.IsAuth(err))
}
