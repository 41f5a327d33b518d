package mention

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/clock"
	"github.com/philonet/rooms/pkg/errors"
)

type fakeSearcher struct {
	mu     sync.Mutex
	calls  []string
	result *api.TaggableUsersResponse
	err    error
}

func (f *fakeSearcher) SearchTaggableUsers(_ context.Context, search string, limit int, _ bool) (*api.TaggableUsersResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, search)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &api.TaggableUsersResponse{Success: true}, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestResolver(s Searcher) (*Resolver, *clock.Fake) {
	fc := clock.NewFake(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	r := NewResolver(s, ResolverOptions{
		Debounce: 150 * time.Millisecond,
		Limit:    5,
		Clock:    fc,
	})
	return r, fc
}

func collect(dst *[][]Suggestion) func([]Suggestion) {
	return func(s []Suggestion) { *dst = append(*dst, s) }
}

func TestResolvePhiloReturnsSentinelWithoutNetwork(t *testing.T) {
	s := &fakeSearcher{}
	r, fc := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "@philo what is this", 6, collect(&got))

	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.True(t, got[0][0].IsAI())
	assert.Equal(t, "@philo", got[0][0].Mention)

	fc.Advance(time.Second)
	assert.Zero(t, s.callCount())
}

func TestResolvePhiloIsCaseInsensitive(t *testing.T) {
	s := &fakeSearcher{}
	r, _ := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "@Philo", 6, collect(&got))

	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, AISentinelID, got[0][0].UserID)
}

func TestResolveNoActiveMentionDeliversNil(t *testing.T) {
	s := &fakeSearcher{}
	r, _ := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "plain text", 5, collect(&got))
	require.Len(t, got, 1)
	assert.Nil(t, got[0])

	// A bare @ is too short to search on
	r.Resolve(context.Background(), "@", 1, collect(&got))
	require.Len(t, got, 2)
	assert.Nil(t, got[1])
	assert.Zero(t, s.callCount())
}

func TestResolveDebouncesSearch(t *testing.T) {
	s := &fakeSearcher{result: &api.TaggableUsersResponse{
		Success: true,
		Users: []api.TaggableUser{
			{UserID: "u-9", Name: "Maria Lopez", DisplayName: "Maria Lopez", Username: "maria", Tag: "@maria"},
		},
	}}
	r, fc := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "hello @m", 8, collect(&got))
	r.Resolve(context.Background(), "hello @ma", 9, collect(&got))
	r.Resolve(context.Background(), "hello @mar", 10, collect(&got))

	// Nothing dispatched until the debounce window elapses
	assert.Zero(t, s.callCount())

	fc.Advance(150 * time.Millisecond)

	// Only the newest token searched and delivered
	assert.Equal(t, 1, s.callCount())
	s.mu.Lock()
	assert.Equal(t, []string{"mar"}, s.calls)
	s.mu.Unlock()

	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, "@maria", got[0][0].Mention)
	assert.Equal(t, "Maria Lopez", got[0][0].DisplayText)
}

func TestResolveSearchFailureFallsBackToStaticList(t *testing.T) {
	s := &fakeSearcher{err: errors.NewNetworkError("backend unreachable")}
	r, fc := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "@jo", 3, collect(&got))
	fc.Advance(150 * time.Millisecond)

	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, "John Doe", got[0][0].Name)
	assert.Equal(t, "Mike Johnson", got[0][1].Name)
}

func TestResolveNewerCallSupersedesPendingDelivery(t *testing.T) {
	s := &fakeSearcher{}
	r, fc := newTestResolver(s)

	var got [][]Suggestion
	r.Resolve(context.Background(), "@maria", 6, collect(&got))

	// The follow-up edit drops the mention before the debounce fires
	r.Resolve(context.Background(), "maria", 5, collect(&got))

	fc.Advance(time.Second)
	require.Len(t, got, 1)
	assert.Nil(t, got[0])
	assert.Zero(t, s.callCount())
}

func TestSuggestionFromUserFallbacks(t *testing.T) {
	s := suggestionFromUser(api.TaggableUser{UserID: "u", Name: "Sam Field", Username: "samf"})
	assert.Equal(t, "@samf", s.Mention)
	assert.Equal(t, "Sam Field", s.DisplayText)
}

func TestNewResolverDefaults(t *testing.T) {
	r := NewResolver(&fakeSearcher{}, ResolverOptions{})

	assert.Equal(t, 150*time.Millisecond, r.debounce)
	assert.Equal(t, 5, r.limit)
}
