package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(expiresAt time.Time) *Session {
	return &Session{
		ID:          uuid.New(),
		UserID:      1,
		Username:    "tester",
		Email:       "test@example.com",
		AccessToken: "token",
		CreatedAt:   time.Now(),
		ExpiresAt:   expiresAt,
	}
}

func TestSession_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "not expired",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "expired",
			expiresAt: time.Now().Add(-time.Hour),
			want:      true,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-time.Second),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{
				ExpiresAt: tt.expiresAt,
			}
			assert.Equal(t, tt.want, session.IsExpired())
		})
	}
}

func TestSession_IsAuthenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.IsAuthenticated())

	assert.True(t, newSession(time.Now().Add(time.Hour)).IsAuthenticated())
	assert.False(t, newSession(time.Now().Add(-time.Hour)).IsAuthenticated())

	noToken := newSession(time.Now().Add(time.Hour))
	noToken.AccessToken = ""
	assert.False(t, noToken.IsAuthenticated())
}

func TestSession_User(t *testing.T) {
	s := newSession(time.Now().Add(time.Hour))
	assert.Equal(t, User{ID: 1, Username: "tester", Email: "test@example.com"}, s.User())
}

func TestContext_RoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(NewContext(context.Background(), nil))
	assert.False(t, ok)

	s := newSession(time.Now().Add(time.Hour))
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	active := newSession(time.Now().Add(time.Hour))
	expired := newSession(time.Now().Add(-time.Hour))
	require.NoError(t, store.Set(ctx, active))
	require.NoError(t, store.Set(ctx, expired))

	got, err := store.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.Username, got.Username)

	got.AccessToken = "mutated"
	again, err := store.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "token", again.AccessToken)

	_, err = store.Get(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, active.ID))
	_, err = store.Get(ctx, active.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(NewMemoryStore(), 24*time.Hour, logger.NewTestLogger())

	session, err := manager.Create(context.Background(),
		User{ID: 1, Username: "tester", Email: "test@example.com"},
		Tokens{AccessToken: "opaque", RefreshToken: "refresh"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, int64(1), session.UserID)
	assert.Equal(t, "refresh", session.RefreshToken)
	assert.True(t, session.IsAuthenticated())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)
}

func TestManager_CreateBoundByTokenExpiry(t *testing.T) {
	manager := NewManager(NewMemoryStore(), 24*time.Hour, logger.NewTestLogger())
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	session, err := manager.Create(context.Background(),
		User{ID: 7, Username: "u"},
		Tokens{AccessToken: testutil.AccessToken(t, 7, exp)})
	require.NoError(t, err)

	assert.True(t, exp.Equal(session.ExpiresAt), "got %v want %v", session.ExpiresAt, exp)
}

func TestManager_CreateBoundByRefreshTokenExpiry(t *testing.T) {
	manager := NewManager(NewMemoryStore(), 24*time.Hour, logger.NewTestLogger())
	accessExp := time.Now().Add(15 * time.Minute)
	refreshExp := time.Now().Add(7 * time.Hour).Truncate(time.Second)

	session, err := manager.Create(context.Background(),
		User{ID: 7, Username: "u"},
		Tokens{
			AccessToken:  testutil.AccessToken(t, 7, accessExp),
			RefreshToken: testutil.RefreshToken(t, 7, refreshExp),
		})
	require.NoError(t, err)

	assert.True(t, refreshExp.Equal(session.ExpiresAt), "got %v want %v", session.ExpiresAt, refreshExp)
}

func TestSession_NeedsRefresh(t *testing.T) {
	soon := testutil.AccessToken(t, 1, time.Now().Add(30*time.Second))
	later := testutil.AccessToken(t, 1, time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil session", nil, false},
		{"expiring with refresh token", &Session{AccessToken: soon, RefreshToken: "r"}, true},
		{"expiring without refresh token", &Session{AccessToken: soon}, false},
		{"not expiring", &Session{AccessToken: later, RefreshToken: "r"}, false},
		{"opaque access token", &Session{AccessToken: "opaque", RefreshToken: "r"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.NeedsRefresh(time.Minute))
		})
	}
}

func TestManager_UpdateAccessToken(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), time.Hour, logger.NewTestLogger())

	created, err := manager.Create(ctx, User{ID: 1}, Tokens{AccessToken: "old", RefreshToken: "r"})
	require.NoError(t, err)

	require.NoError(t, manager.UpdateAccessToken(ctx, created, "new"))

	got, err := manager.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
}

func TestManager_GetExpired(t *testing.T) {
	manager := NewManager(NewMemoryStore(), time.Millisecond, logger.NewTestLogger())

	created, err := manager.Create(context.Background(), User{ID: 1}, Tokens{AccessToken: "t"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = manager.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestManager_Clear(t *testing.T) {
	log := logger.NewTestLogger()
	manager := NewManager(NewMemoryStore(), 24*time.Hour, log)

	created, err := manager.Create(context.Background(), User{ID: 1}, Tokens{AccessToken: "t"})
	require.NoError(t, err)

	require.NoError(t, manager.Clear(context.Background(), created.ID))

	_, err = manager.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, log.HasMessage("info", "session deleted"))
}

func TestManager_Cleanup(t *testing.T) {
	log := logger.NewTestLogger()
	store := NewMemoryStore()
	manager := NewManager(store, 24*time.Hour, log)

	require.NoError(t, store.Set(context.Background(), newSession(time.Now().Add(-time.Minute))))
	active, err := manager.Create(context.Background(), User{ID: 2}, Tokens{AccessToken: "t"})
	require.NoError(t, err)

	manager.cleanup()

	assert.True(t, log.HasMessage("info", "cleaned up expired sessions"))
	_, err = manager.Get(context.Background(), active.ID)
	assert.NoError(t, err)
}

func TestManager_Concurrent(t *testing.T) {
	manager := NewManager(NewMemoryStore(), 24*time.Hour, logger.NewTestLogger())

	var wg sync.WaitGroup
	sessionIDs := make(chan uuid.UUID, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			session, err := manager.Create(context.Background(), User{ID: int64(id)}, Tokens{AccessToken: "t"})
			if err == nil {
				sessionIDs <- session.ID
			}
		}(i)
	}

	wg.Wait()
	close(sessionIDs)

	count := 0
	for sessionID := range sessionIDs {
		_, err := manager.Get(context.Background(), sessionID)
		assert.NoError(t, err)
		count++
	}

	assert.Equal(t, 100, count)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := tokenExpiry(testutil.AccessToken(t, 1, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)
}

func TestGenerateSessionID(t *testing.T) {
	id1, err := generateSessionID()
	require.NoError(t, err)

	id2, err := generateSessionID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}
