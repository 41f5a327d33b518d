package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/cache"
	"github.com/philonet/rooms/pkg/clock"
	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/pkg/logger"
)

// ThreadBackend is the slice of the API client the thread list needs.
// It includes everything a per-thread engine dispatches through.
type ThreadBackend interface {
	Backend
	FetchComments(ctx context.Context, params api.FetchCommentsParams) (*api.CommentsResponse, error)
}

// Participant is a user visible in a thread's preview
type Participant struct {
	ID     string
	Name   string
	Avatar string
}

// ThreadReactions tallies the preview reaction types on a thought starter
type ThreadReactions struct {
	Loves    int
	Hearts   int
	Stars    int
	ThumbsUp int
}

// LastMessage is the newest reply shown under a thought starter
type LastMessage struct {
	Text      string
	Author    string
	Timestamp time.Time
}

// ThoughtStarter is a top-level comment presented as a conversation entry
type ThoughtStarter struct {
	ID           string
	CommentID    int64
	Title        string
	Body         string
	Quote        string
	Tags         []string
	Author       Participant
	IsOwn        bool
	CreatedAt    time.Time
	MessageCount int
	Participants []Participant
	Reactions    ThreadReactions
	LastMessage  *LastMessage
}

// threadTitleLimit caps the derived title when a comment has none
const threadTitleLimit = 100

// stop words excluded from derived tags
var tagStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "what": true, "when": true,
	"where": true, "why": true, "how": true,
}

// extractTags derives up to three topic words from the comment body
func extractTags(content string) []string {
	var tags []string
	for _, word := range strings.Fields(strings.ToLower(content)) {
		if len(word) <= 3 || tagStopWords[word] {
			continue
		}
		tags = append(tags, word)
		if len(tags) == 3 {
			break
		}
	}
	return tags
}

func reactionCount(reactions []api.ReactionCount, reactionType string) int {
	for _, r := range reactions {
		if r.Type == reactionType {
			return r.Count
		}
	}
	return 0
}

// uniqueParticipants keeps the first appearance of each user, capped at five
func uniqueParticipants(comments []api.CommentAuthor) []Participant {
	seen := make(map[string]bool, len(comments))
	var out []Participant
	for _, c := range comments {
		if seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		out = append(out, Participant{ID: c.UserID, Name: c.UserName, Avatar: c.UserPicture})
		if len(out) == 5 {
			break
		}
	}
	return out
}

// ThoughtStarterFromComment transforms a wire comment into a list entry
func ThoughtStarterFromComment(c api.Comment, selfUserID string) ThoughtStarter {
	title := c.Title
	if title == "" {
		title = c.Content
		if len(title) > threadTitleLimit {
			title = title[:threadTitleLimit] + "..."
		}
	}

	ts := ThoughtStarter{
		ID:           fmt.Sprintf("%d", c.CommentID),
		CommentID:    c.CommentID,
		Title:        title,
		Body:         c.Content,
		Quote:        c.Quote,
		Tags:         extractTags(c.Content),
		Author:       Participant{ID: c.UserID, Name: c.UserName, Avatar: c.UserPicture},
		IsOwn:        selfUserID != "" && c.UserID == selfUserID,
		CreatedAt:    parseWireTime(c.CreatedAt),
		MessageCount: c.ChildCommentCount,
		Participants: uniqueParticipants(c.RecentChildComments),
		Reactions: ThreadReactions{
			Loves:    reactionCount(c.Reactions, "love"),
			Hearts:   reactionCount(c.Reactions, "heart"),
			Stars:    reactionCount(c.Reactions, "star"),
			ThumbsUp: reactionCount(c.Reactions, "celebrate"),
		},
	}

	if len(c.RecentChildComments) > 0 {
		newest := c.RecentChildComments[0]
		ts.LastMessage = &LastMessage{
			Text:      newest.Content,
			Author:    newest.UserName,
			Timestamp: parseWireTime(newest.CreatedAt),
		}
	}

	return ts
}

// ThreadState is a thread's load lifecycle
type ThreadState string

const (
	ThreadUnloaded ThreadState = "unloaded"
	ThreadLoading  ThreadState = "loading"
	ThreadLoaded   ThreadState = "loaded"
	ThreadErrored  ThreadState = "errored"
)

// User-facing load failures, worded by cause
const (
	errMsgLoginRequired = "Authentication required. Please log in to view conversations."
	errMsgListFailed    = "Failed to load conversations. Please try again."
	errMsgThreadFailed  = "Failed to load conversation. Please try again."
)

// threadHandle tracks one thread's load state and its engine once loaded
type threadHandle struct {
	state  ThreadState
	errMsg string
	engine *Engine
}

// ThreadList manages the conversation drawer for one article: the thought
// starter listing, per-thread load state and one engine per opened thread.
type ThreadList struct {
	mu    sync.Mutex
	be    ThreadBackend
	clock clock.Clock
	log   *logger.Logger
	store *cache.Cache

	articleID int64
	selfID    string
	selfName  string
	aiSummary string
	pageSize  int
	engineCfg Config

	loading  bool
	loadErr  string
	starters []ThoughtStarter
	hasMore  bool
	cursor   string

	threads map[int64]*threadHandle
}

// ThreadListOptions configures a ThreadList
type ThreadListOptions struct {
	ArticleID int64
	SelfID    string
	SelfName  string
	AISummary string
	PageSize  int
	Clock     clock.Clock
	Logger    *logger.Logger
	Cache     *cache.Cache
	Config    *Config
}

// NewThreadList creates the drawer state for one article
func NewThreadList(be ThreadBackend, opts ThreadListOptions) *ThreadList {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewCache()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	return &ThreadList{
		be:        be,
		clock:     opts.Clock,
		log:       opts.Logger.WithArticle(opts.ArticleID),
		store:     opts.Cache,
		articleID: opts.ArticleID,
		selfID:    opts.SelfID,
		selfName:  opts.SelfName,
		aiSummary: opts.AISummary,
		pageSize:  opts.PageSize,
		engineCfg: cfg,
		threads:   make(map[int64]*threadHandle),
	}
}

// Load fetches the first page of thought starters, replacing the listing
func (l *ThreadList) Load(ctx context.Context) error {
	return l.load(ctx, "")
}

// LoadMore fetches the next page and appends it; no-op when exhausted
func (l *ThreadList) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	cursor := l.cursor
	l.mu.Unlock()

	return l.load(ctx, cursor)
}

func (l *ThreadList) load(ctx context.Context, cursor string) error {
	l.mu.Lock()
	l.loading = true
	l.loadErr = ""
	l.mu.Unlock()

	resp, err := l.be.FetchComments(ctx, api.FetchCommentsParams{
		ArticleID: l.articleID,
		Limit:     l.pageSize,
		Cursor:    cursor,
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false

	if err != nil {
		l.log.LogError(err, "Failed to load thought starters")
		l.loadErr = errMsgListFailed
		if errors.IsAuth(err) {
			l.loadErr = errMsgLoginRequired
		}
		return err
	}

	page := make([]ThoughtStarter, 0, len(resp.Comments))
	for _, c := range resp.Comments {
		page = append(page, ThoughtStarterFromComment(c, l.selfID))
	}

	if cursor == "" {
		l.starters = page
	} else {
		l.starters = append(l.starters, page...)
	}

	l.hasMore = resp.Pagination.HasMore
	l.cursor = ""
	if resp.Pagination.NextCursor != nil {
		l.cursor = *resp.Pagination.NextCursor
	}
	return nil
}

// Starters returns the current listing
func (l *ThreadList) Starters() []ThoughtStarter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ThoughtStarter(nil), l.starters...)
}

// Loading reports whether a listing fetch is in flight
func (l *ThreadList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// LoadError returns the user-facing listing failure, empty when healthy
func (l *ThreadList) LoadError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadErr
}

// HasMore reports whether another page is available
func (l *ThreadList) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// ThreadStatus returns a thread's load state and user-facing error
func (l *ThreadList) ThreadStatus(commentID int64) (ThreadState, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.threads[commentID]
	if !ok {
		return ThreadUnloaded, ""
	}
	return h.state, h.errMsg
}

// Engine returns the engine for a loaded thread, nil otherwise
func (l *ThreadList) Engine(commentID int64) *Engine {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.threads[commentID]
	if !ok || h.state != ThreadLoaded {
		return nil
	}
	return h.engine
}

func (l *ThreadList) threadCacheKey(commentID int64) string {
	return fmt.Sprintf("thread:%d:%d", l.articleID, commentID)
}

// Open loads a thread's replies and builds its engine. A reopen of a loaded
// thread refreshes it in place; an errored thread retries from scratch.
func (l *ThreadList) Open(ctx context.Context, commentID int64) (*Engine, error) {
	l.mu.Lock()
	h, ok := l.threads[commentID]
	if !ok {
		h = &threadHandle{state: ThreadUnloaded}
		l.threads[commentID] = h
	}
	if h.state == ThreadLoading {
		l.mu.Unlock()
		return nil, errors.NewValidationError("thread is already loading")
	}
	if h.engine == nil {
		h.engine = NewEngine(l.be, Options{
			ArticleID:       l.articleID,
			ParentCommentID: commentID,
			SelfID:          l.selfID,
			SelfName:        l.selfName,
			AISummary:       l.aiSummary,
			Clock:           l.clock,
			Logger:          l.log,
			Config:          &l.engineCfg,
		})
	}
	h.state = ThreadLoading
	h.errMsg = ""
	engine := h.engine
	l.mu.Unlock()

	if cached, found := l.store.Get(l.threadCacheKey(commentID)); found {
		if batch, ok := cached.([]*Message); ok {
			engine.Ingest(batch)
			l.mu.Lock()
			h.state = ThreadLoaded
			l.mu.Unlock()
			return engine, nil
		}
	}

	err := engine.Refresh(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		h.state = ThreadErrored
		h.errMsg = errMsgThreadFailed
		if errors.IsAuth(err) {
			h.errMsg = errMsgLoginRequired
		}
		return nil, err
	}

	h.state = ThreadLoaded
	l.store.Set(l.threadCacheKey(commentID), confirmedOnly(engine.Snapshot()))
	return engine, nil
}

// confirmedOnly drops messages the server has not acknowledged yet.
// Cached batches replay through Ingest on a later open, and a clone of a
// pending temp message has no comment id for the dedup rule to retire it
// against the live one.
func confirmedOnly(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m.CommentID == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Invalidate drops a thread's cached replies so the next open refetches
func (l *ThreadList) Invalidate(commentID int64) {
	l.store.Delete(l.threadCacheKey(commentID))
}

// Send posts a message through an open thread. The cached replies are
// dropped so the next open fetches the authoritative state.
func (l *ThreadList) Send(ctx context.Context, commentID int64, req SendRequest) (string, error) {
	engine := l.Engine(commentID)
	if engine == nil {
		return "", errors.NewValidationError("thread is not open")
	}

	id, err := engine.Send(ctx, req)
	if err == nil {
		l.Invalidate(commentID)
	}
	return id, err
}
