package room

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/clock"
	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/logger"
)

// Backend is the slice of the API client the engine dispatches through
type Backend interface {
	FetchSubComments(ctx context.Context, params api.FetchSubCommentsParams) (*api.SubCommentsResponse, error)
	AddComment(ctx context.Context, params api.AddCommentParams) (*api.AddCommentResponse, error)
	ToggleReaction(ctx context.Context, params api.ToggleReactionParams) (*api.ToggleReactionResponse, error)
	QueryAI(ctx context.Context, params api.AIQueryParams) (*api.AIQueryResponse, error)
}

// Config holds the engine's timing knobs
type Config struct {
	SentDelay        time.Duration
	DeliveredDelay   time.Duration
	RefreshDelay     time.Duration
	SweepInterval    time.Duration
	StuckThreshold   time.Duration
	AIReplyWindow    time.Duration
	AIActivityWindow time.Duration
	NoticeTTL        time.Duration
	ValidationTTL    time.Duration
}

// DefaultConfig reads the engine timings from the application config
func DefaultConfig() Config {
	cfg := config.Get()
	return Config{
		SentDelay:        cfg.Engine.SentDelay,
		DeliveredDelay:   cfg.Engine.DeliveredDelay,
		RefreshDelay:     cfg.Engine.RefreshDelay,
		SweepInterval:    cfg.Engine.SweepInterval,
		StuckThreshold:   cfg.Engine.StuckThreshold,
		AIReplyWindow:    cfg.Engine.AIReplyWindow,
		AIActivityWindow: cfg.Engine.AIActivityWindow,
		NoticeTTL:        cfg.Engine.NoticeTTL,
		ValidationTTL:    cfg.Engine.ValidationTTL,
	}
}

// Notice is a transient user-facing message (validation or reaction failures)
type Notice struct {
	ID   int
	Text string
	Kind string
}

// Engine reconciles one open conversation thread: optimistic sends,
// server batch ingestion, reaction toggles and the AI question flow.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	clock clock.Clock
	be    Backend
	log   *logger.Logger

	articleID       int64
	parentCommentID int64
	selfID          string
	selfName        string
	aiSummary       string

	messages  []*Message
	localByID map[string]bool

	notices    []Notice
	nextNotice int

	aiLoading bool

	subs    map[int]func()
	nextSub int

	sweeping   bool
	sweepTimer clock.Timer
}

// Options configures a thread engine
type Options struct {
	ArticleID       int64
	ParentCommentID int64
	SelfID          string
	SelfName        string
	AISummary       string
	Clock           clock.Clock
	Logger          *logger.Logger
	Config          *Config
}

// NewEngine creates an engine for one thread
func NewEngine(be Backend, opts Options) *Engine {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}

	return &Engine{
		cfg:             cfg,
		clock:           opts.Clock,
		be:              be,
		log:             opts.Logger.WithThread(formatThreadID(opts.ParentCommentID)).WithArticle(opts.ArticleID),
		articleID:       opts.ArticleID,
		parentCommentID: opts.ParentCommentID,
		selfID:          opts.SelfID,
		selfName:        opts.SelfName,
		aiSummary:       opts.AISummary,
		localByID:       make(map[string]bool),
		subs:            make(map[int]func()),
	}
}

func formatThreadID(parentCommentID int64) string {
	if parentCommentID == 0 {
		return ""
	}
	return fmt.Sprintf("%d", parentCommentID)
}

// Subscribe registers a change callback and returns an unsubscribe function
func (e *Engine) Subscribe(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// notify calls subscribers outside the lock; callers must not hold e.mu
func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns a deep copy of the current message collection
func (e *Engine) Snapshot() []*Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Message, len(e.messages))
	for i, m := range e.messages {
		out[i] = m.Clone()
	}
	return out
}

// Notices returns the currently visible transient notices
func (e *Engine) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Notice(nil), e.notices...)
}

// AILoading reports whether an AI answer is in flight
func (e *Engine) AILoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aiLoading
}

// Ingest merges a server batch with the local state: own unconfirmed
// messages are carried over, suspiciously fresh AI entries are dropped,
// and the result is deduped per resolved comment id and sorted by time.
func (e *Engine) Ingest(batch []*Message) {
	e.mu.Lock()

	filtered := e.filterFreshAI(batch)

	present := make(map[int64]bool, len(filtered))
	for _, m := range filtered {
		if m.CommentID != 0 {
			present[m.CommentID] = true
		}
	}

	// Carry over everything this engine appended locally that the server
	// has not confirmed into a listing yet
	var carryover []*Message
	for _, m := range e.messages {
		if !e.localByID[m.ID] {
			continue
		}
		if m.CommentID != 0 && present[m.CommentID] {
			// Confirmed; the server copy wins and the temp entry retires
			delete(e.localByID, m.ID)
			continue
		}
		carryover = append(carryover, m)
	}

	merged := make([]*Message, 0, len(filtered)+len(carryover))
	merged = append(merged, filtered...)
	merged = append(merged, carryover...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	// At most one message per resolved comment id; first (server) copy wins
	seen := make(map[int64]bool, len(merged))
	deduped := merged[:0]
	for _, m := range merged {
		if m.CommentID != 0 {
			if seen[m.CommentID] {
				delete(e.localByID, m.ID)
				continue
			}
			seen[m.CommentID] = true
		}
		deduped = append(deduped, m)
	}

	e.messages = deduped
	e.mu.Unlock()

	ingestedBatches.Inc()
	e.notify()
}

// filterFreshAI drops AI entries that trail user activity too closely:
// generated replies landing within the reply window of an earlier non-AI
// message in the batch, or within the activity window of any user message,
// are treated as backend auto-responses and suppressed. AI answers whose
// title matches a question visible locally are exempt; callers hold e.mu.
func (e *Engine) filterFreshAI(batch []*Message) []*Message {
	questions := make(map[string]bool)
	for _, m := range e.messages {
		if m.IsOwn {
			questions[m.Text] = true
		}
	}
	for _, m := range batch {
		if m.IsOwn {
			questions[m.Text] = true
		}
	}

	// Pending local user messages count as activity too
	var pendingUser []*Message
	for _, m := range e.messages {
		if e.localByID[m.ID] && !m.IsAI() {
			pendingUser = append(pendingUser, m)
		}
	}

	out := make([]*Message, 0, len(batch))
	for i, m := range batch {
		if !m.IsAI() {
			out = append(out, m)
			continue
		}
		if m.Title != "" && questions[m.Title] {
			out = append(out, m)
			continue
		}

		suppress := false
		check := func(prev *Message) {
			if prev.IsAI() {
				return
			}
			if prev.Timestamp.After(m.Timestamp.Add(-e.cfg.AIReplyWindow)) {
				suppress = true
			}
			if prev.Timestamp.After(m.Timestamp.Add(-e.cfg.AIActivityWindow)) {
				suppress = true
			}
		}
		for j := 0; j < i; j++ {
			check(batch[j])
		}
		for _, prev := range pendingUser {
			check(prev)
		}

		if suppress {
			e.log.Warn("Suppressing auto-generated AI reply",
				"message_id", m.ID,
				"timestamp", m.Timestamp,
			)
			suppressedAIMessages.Inc()
			continue
		}
		out = append(out, m)
	}
	return out
}

// addNotice appends a transient notice and schedules its removal;
// callers hold e.mu
func (e *Engine) addNotice(text, kind string, ttl time.Duration) {
	e.nextNotice++
	id := e.nextNotice
	e.notices = append(e.notices, Notice{ID: id, Text: text, Kind: kind})

	e.clock.AfterFunc(ttl, func() {
		e.mu.Lock()
		kept := e.notices[:0]
		for _, n := range e.notices {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		e.notices = kept
		e.mu.Unlock()
		e.notify()
	})
}
