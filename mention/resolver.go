package mention

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/clock"
	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/logger"
)

// AISentinelID marks the synthetic assistant suggestion. Choosing it opens
// the AI flow instead of inserting text.
const AISentinelID = "philo-ai"

// Suggestion is one entry in the mention dropdown
type Suggestion struct {
	UserID      string
	Name        string
	DisplayName string
	Avatar      string
	Username    string
	Mention     string
	DisplayText string
}

// IsAI reports whether this is the assistant sentinel
func (s Suggestion) IsAI() bool {
	return s.UserID == AISentinelID
}

var aiSuggestion = Suggestion{
	UserID:      AISentinelID,
	Name:        "Philo",
	DisplayName: "Philo AI",
	Username:    "philo",
	Mention:     "@philo",
	DisplayText: "Ask Philo AI",
}

// fallbackSuggestions keep the dropdown useful when the search endpoint is
// unreachable; suggestion UIs must never block typing on an error
var fallbackSuggestions = []Suggestion{
	{
		UserID:      "1",
		Name:        "John Doe",
		DisplayName: "John Doe",
		Avatar:      "https://ui-avatars.com/api/?name=J&background=4285f4&color=fff&size=200&bold=true",
		Username:    "johndoe",
		Mention:     "@johndoe",
		DisplayText: "John Doe",
	},
	{
		UserID:      "2",
		Name:        "Jane Smith",
		DisplayName: "Jane Smith",
		Avatar:      "https://ui-avatars.com/api/?name=J&background=e91e63&color=fff&size=200&bold=true",
		Username:    "janesmith",
		Mention:     "@janesmith",
		DisplayText: "Jane Smith",
	},
	{
		UserID:      "3",
		Name:        "Mike Johnson",
		DisplayName: "Mike Johnson",
		Avatar:      "https://ui-avatars.com/api/?name=M&background=ff9800&color=fff&size=200&bold=true",
		Username:    "mikejohnson",
		Mention:     "@mikejohnson",
		DisplayText: "Mike Johnson",
	},
}

// Searcher is the slice of the API client the resolver queries
type Searcher interface {
	SearchTaggableUsers(ctx context.Context, search string, limit int, excludeCurrent bool) (*api.TaggableUsersResponse, error)
}

// Resolver turns the mention token under the cursor into ranked suggestions.
// Network-backed lookups are debounced; only the newest request delivers.
type Resolver struct {
	mu       sync.Mutex
	searcher Searcher
	clock    clock.Clock
	log      *logger.Logger
	debounce time.Duration
	limit    int

	pending clock.Timer
	seq     int
}

// ResolverOptions configures a Resolver
type ResolverOptions struct {
	Debounce time.Duration
	Limit    int
	Clock    clock.Clock
	Logger   *logger.Logger
}

// NewResolver creates a resolver over the given search backend
func NewResolver(searcher Searcher, opts ResolverOptions) *Resolver {
	cfg := config.Get()
	if opts.Debounce <= 0 {
		opts.Debounce = cfg.Mention.Debounce
	}
	if opts.Limit <= 0 {
		opts.Limit = cfg.Mention.Limit
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}

	return &Resolver{
		searcher: searcher,
		clock:    opts.Clock,
		log:      opts.Logger,
		debounce: opts.Debounce,
		limit:    opts.Limit,
	}
}

// Resolve inspects the text around the cursor and delivers suggestions.
// No active mention or a bare @ delivers nil immediately. A token starting
// with @philo delivers the assistant sentinel without touching the network.
// Anything else schedules a debounced search; a newer Resolve call
// supersedes a pending one, and a failed search degrades to the static
// fallback list filtered by the typed term.
func (r *Resolver) Resolve(ctx context.Context, text string, cursor int, deliver func([]Suggestion)) {
	tok, ok := Current(text, cursor)
	if !ok || len(tok.Mention) <= 1 {
		r.cancelPending()
		deliver(nil)
		return
	}

	if strings.HasPrefix(strings.ToLower(tok.Mention), "@philo") {
		r.cancelPending()
		deliver([]Suggestion{aiSuggestion})
		return
	}

	term := strings.TrimPrefix(tok.Mention, "@")

	r.mu.Lock()
	if r.pending != nil {
		r.pending.Stop()
	}
	r.seq++
	seq := r.seq
	r.pending = r.clock.AfterFunc(r.debounce, func() {
		r.search(ctx, seq, term, deliver)
	})
	r.mu.Unlock()
}

func (r *Resolver) cancelPending() {
	r.mu.Lock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.seq++
	r.mu.Unlock()
}

func (r *Resolver) search(ctx context.Context, seq int, term string, deliver func([]Suggestion)) {
	resp, err := r.searcher.SearchTaggableUsers(ctx, term, r.limit, true)

	var out []Suggestion
	if err != nil {
		r.log.Warn("Mention search failed, using fallback suggestions", "error", err.Error())
		out = filterFallback(term, r.limit)
	} else {
		out = make([]Suggestion, 0, len(resp.Users))
		for _, u := range resp.Users {
			out = append(out, suggestionFromUser(u))
		}
		if len(out) > r.limit {
			out = out[:r.limit]
		}
	}

	r.mu.Lock()
	stale := seq != r.seq
	r.mu.Unlock()
	if stale {
		return
	}

	deliver(out)
}

func suggestionFromUser(u api.TaggableUser) Suggestion {
	mention := u.Tag
	if mention == "" {
		mention = "@" + u.Username
	}
	display := u.DisplayName
	if display == "" {
		display = u.Name
	}
	return Suggestion{
		UserID:      u.UserID,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Username:    u.Username,
		Mention:     mention,
		DisplayText: display,
	}
}

func filterFallback(term string, limit int) []Suggestion {
	term = strings.ToLower(term)
	var out []Suggestion
	for _, s := range fallbackSuggestions {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Username), term) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
