package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/session"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	client := NewClient(store, Options{
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		RateLimit: rate.Inf,
	})
	return client, store
}

func signIn(t *testing.T, store *session.MemoryStore) {
	t.Helper()
	err := store.SetAuth(context.Background(), "opaque-test-token", &session.User{ID: 1, Name: "Tester"})
	require.NoError(t, err)
}

func TestFetchCommentsDecodesResponse(t *testing.T) {
	var gotAuth, gotRequestID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/room/commentsnew", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")

		var body FetchCommentsParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(5598), body.ArticleID)
		assert.Equal(t, 10, body.Limit)

		json.NewEncoder(w).Encode(CommentsResponse{
			Comments: []Comment{{
				CommentID: 6012,
				Content:   "first thought",
				UserName:  "Ada",
				Reactions: []ReactionCount{{Type: "love", Count: 2}},
			}},
			Pagination: Pagination{HasMore: true},
		})
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	resp, err := client.FetchComments(context.Background(), FetchCommentsParams{ArticleID: 5598})
	require.NoError(t, err)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, int64(6012), resp.Comments[0].CommentID)
	assert.True(t, resp.Pagination.HasMore)
	assert.Equal(t, "Bearer opaque-test-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestMissingTokenFailsBeforeDispatch(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	client, _ := testClient(t, handler)

	_, err := client.FetchComments(context.Background(), FetchCommentsParams{ArticleID: 1})
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	_, err := client.FetchSubComments(context.Background(), FetchSubCommentsParams{ParentCommentID: 1, ArticleID: 1})
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
}

func TestServerErrorMapsToNetworkError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	_, err := client.AddComment(context.Background(), AddCommentParams{ArticleID: 1, Content: "hi"})
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
	assert.Contains(t, err.Error(), "500")
}

func TestToggleReactionDefaultsTargetType(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ToggleReactionParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "comment", body.TargetType)
		assert.Equal(t, "love", body.ReactionType)

		json.NewEncoder(w).Encode(ToggleReactionResponse{UserReacted: true, ReactionCount: 3})
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	resp, err := client.ToggleReaction(context.Background(), ToggleReactionParams{TargetID: 42, ReactionType: "love"})
	require.NoError(t, err)
	assert.True(t, resp.UserReacted)
	assert.Equal(t, 3, resp.ReactionCount)
}

func TestSearchTaggableUsersQuery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/interactions/taggable-users", r.URL.Path)
		assert.Equal(t, "ma", r.URL.Query().Get("search"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("exclude_current"))

		json.NewEncoder(w).Encode(TaggableUsersResponse{
			Success: true,
			Users:   []TaggableUser{{UserID: "7", Name: "Mark", Username: "mark"}},
			Total:   1,
		})
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	resp, err := client.SearchTaggableUsers(context.Background(), "ma", 5, true)
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "mark", resp.Users[0].Username)
}

func TestLoginStoresSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(AuthResponse{
			Token: "fresh-token",
			User:  AuthUser{ID: 9, Name: "Nia", Email: "nia@example.com"},
		})
	})

	client, store := testClient(t, handler)

	resp, err := client.Login(context.Background(), LoginParams{Email: "nia@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", resp.Token)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	user, err := store.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nia", user.Name)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	client, store := testClient(t, handler)
	signIn(t, store)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.QueryAI(ctx, AIQueryParams{Text: "what is this"})
		require.Error(t, err)
	}

	// Breaker is open now; the failure surfaces without reaching the server
	_, err := client.QueryAI(ctx, AIQueryParams{Text: "still there?"})
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
	assert.Contains(t, err.Error(), "circuit open")
}
