package room

import (
	"context"
	"strings"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/errors"
)

// SendRequest describes a message about to enter the thread
type SendRequest struct {
	Text string

	// Denormalized snapshot of the message being replied to
	ReplyToMessageID string
	ReplyToContent   string
	ReplyToAuthor    string

	// TaggedQuote is the highlighted article text this message attaches to
	TaggedQuote string
	// RequireTaggedQuote rejects the send when no selection is attached
	// (the thought-starter flow)
	RequireTaggedQuote bool
}

// Send validates and appends an optimistic message, then dispatches it.
// The message is visible in the snapshot before Send returns; status
// pacing and the authoritative refresh happen on the engine clock.
// Returns the temp client id of the new message.
func (e *Engine) Send(ctx context.Context, req SendRequest) (string, error) {
	text := strings.TrimSpace(req.Text)

	e.mu.Lock()
	if text == "" {
		e.addNotice("Cannot send an empty message", "validation", e.cfg.ValidationTTL)
		e.mu.Unlock()
		e.notify()
		return "", errors.NewValidationError("message text is empty")
	}
	if req.RequireTaggedQuote && strings.TrimSpace(req.TaggedQuote) == "" {
		e.addNotice("Select article text to start a thought", "validation", e.cfg.ValidationTTL)
		e.mu.Unlock()
		e.notify()
		return "", errors.NewValidationError("a tagged selection is required")
	}

	now := e.clock.Now()
	msg := &Message{
		ID:               TempID(now),
		Text:             text,
		Author:           e.selfName,
		Timestamp:        now,
		IsOwn:            true,
		Type:             TypeText,
		Status:           StatusSending,
		Quote:            req.TaggedQuote,
		ReplyToMessageID: req.ReplyToMessageID,
		ReplyToContent:   req.ReplyToContent,
		ReplyToAuthor:    req.ReplyToAuthor,
	}
	e.messages = append(e.messages, msg)
	e.localByID[msg.ID] = true
	e.mu.Unlock()

	e.notify()

	go e.dispatchSend(ctx, msg.ID, api.AddCommentParams{
		ArticleID:       e.articleID,
		Content:         text,
		ParentCommentID: e.parentCommentID,
		ReplyMessageID:  req.ReplyToMessageID,
		Quote:           req.TaggedQuote,
	})

	return msg.ID, nil
}

func (e *Engine) dispatchSend(ctx context.Context, msgID string, params api.AddCommentParams) {
	resp, err := e.be.AddComment(ctx, params)

	e.mu.Lock()
	msg := e.findLocked(msgID)
	if msg == nil {
		e.mu.Unlock()
		return
	}

	if err != nil {
		e.log.LogError(err, "Failed to send message", "message_id", msgID)
		msg.Text += failureMarker
		msg.SendFailed = true
		msg.Status = StatusSent
		e.mu.Unlock()
		e.notify()
		return
	}

	msg.CommentID = resp.CommentID
	e.mu.Unlock()
	e.notify()

	e.paceStatus(msgID)

	e.clock.AfterFunc(e.cfg.RefreshDelay, func() {
		e.Refresh(context.Background())
	})
}

// paceStatus walks an own message through sent and delivered on fixed
// presentation delays
func (e *Engine) paceStatus(msgID string) {
	e.clock.AfterFunc(e.cfg.SentDelay, func() {
		e.transition(msgID, StatusSending, StatusSent)
	})
	e.clock.AfterFunc(e.cfg.DeliveredDelay, func() {
		e.transition(msgID, StatusSent, StatusDelivered)
	})
}

func (e *Engine) transition(msgID string, from, to Status) {
	e.mu.Lock()
	msg := e.findLocked(msgID)
	changed := msg != nil && msg.Status == from && !msg.SendFailed
	if changed {
		msg.Status = to
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

func (e *Engine) findLocked(msgID string) *Message {
	for _, m := range e.messages {
		if m.ID == msgID {
			return m
		}
	}
	return nil
}

// Refresh pulls the thread's replies from the backend and reconciles them
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	articleID, parentCommentID, selfID := e.articleID, e.parentCommentID, e.selfID
	e.mu.Unlock()

	if parentCommentID == 0 {
		return nil
	}

	resp, err := e.be.FetchSubComments(ctx, api.FetchSubCommentsParams{
		ParentCommentID: parentCommentID,
		ArticleID:       articleID,
	})
	if err != nil {
		e.log.LogError(err, "Thread refresh failed")
		return err
	}

	batch := make([]*Message, 0, len(resp.Comments))
	for _, sc := range resp.Comments {
		batch = append(batch, MessageFromSubComment(sc, selfID))
	}
	e.Ingest(batch)
	return nil
}

// Sweep forces messages stuck in sending past the threshold to sent with
// a timeout marker, so a lost transition callback never spins forever
func (e *Engine) Sweep() {
	now := e.clock.Now()

	e.mu.Lock()
	changed := false
	for _, m := range e.messages {
		if m.Status != StatusSending {
			continue
		}
		if now.Sub(m.Timestamp) > e.cfg.StuckThreshold {
			m.Status = StatusSent
			m.Text += timeoutMarker
			changed = true
			stuckSendSweeps.Inc()
		}
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// StartSweep begins the periodic stuck-sending sweep on the engine clock
func (e *Engine) StartSweep() {
	e.mu.Lock()
	if e.sweeping {
		e.mu.Unlock()
		return
	}
	e.sweeping = true
	e.mu.Unlock()

	e.scheduleSweep()
}

func (e *Engine) scheduleSweep() {
	e.mu.Lock()
	if !e.sweeping {
		e.mu.Unlock()
		return
	}
	e.sweepTimer = e.clock.AfterFunc(e.cfg.SweepInterval, func() {
		e.Sweep()
		e.scheduleSweep()
	})
	e.mu.Unlock()
}

// StopSweep cancels the periodic sweep
func (e *Engine) StopSweep() {
	e.mu.Lock()
	e.sweeping = false
	if e.sweepTimer != nil {
		e.sweepTimer.Stop()
		e.sweepTimer = nil
	}
	e.mu.Unlock()
}

// AskAI appends the question as an own message immediately and resolves
// the answer in the background. Missing thread context fails the question
// with an error naming every absent field.
func (e *Engine) AskAI(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)

	e.mu.Lock()
	if question == "" {
		e.addNotice("Cannot ask an empty question", "validation", e.cfg.ValidationTTL)
		e.mu.Unlock()
		e.notify()
		return "", errors.NewValidationError("question text is empty")
	}

	now := e.clock.Now()
	msg := &Message{
		ID:        QuestionID(now),
		Text:      question,
		Author:    e.selfName,
		Timestamp: now,
		IsOwn:     true,
		Type:      TypeText,
		Status:    StatusSent,
	}
	e.messages = append(e.messages, msg)
	e.localByID[msg.ID] = true

	var missing []string
	if e.articleID == 0 {
		missing = append(missing, "article id")
	}
	if e.parentCommentID == 0 {
		missing = append(missing, "parent comment id")
	}
	if e.aiSummary == "" {
		missing = append(missing, "article summary")
	}

	if len(missing) > 0 {
		msg.Text += failureMarker
		msg.SendFailed = true
		e.mu.Unlock()
		e.notify()
		return msg.ID, errors.NewReconciliationError(
			"cannot ask AI without context: missing " + strings.Join(missing, ", "))
	}

	e.aiLoading = true
	summary := e.aiSummary
	e.mu.Unlock()
	e.notify()

	go e.dispatchAskAI(ctx, msg.ID, question, summary)

	return msg.ID, nil
}

func (e *Engine) dispatchAskAI(ctx context.Context, questionID, question, summary string) {
	resp, err := e.be.QueryAI(ctx, api.AIQueryParams{
		Text: summary + "\n\nQuestion: " + question,
		Fast: true,
	})

	e.mu.Lock()
	if err != nil {
		e.log.LogError(err, "AI query failed", "question_id", questionID)
		if q := e.findLocked(questionID); q != nil {
			q.Text += failureMarker
			q.SendFailed = true
		}
		e.aiLoading = false
		e.mu.Unlock()
		e.notify()
		return
	}

	answer := resp.SummaryMini
	if answer == "" {
		answer = resp.Summary
	}

	now := e.clock.Now()
	aiMsg := &Message{
		ID:        "ai-" + questionID,
		Text:      answer,
		Author:    aiAuthor,
		Timestamp: now,
		Type:      TypeAI,
		Status:    StatusDelivered,
		// Title carries the question so the freshness filter recognizes
		// this answer as asked-for when it comes back in a listing
		Title: question,
	}
	e.messages = append(e.messages, aiMsg)
	e.localByID[aiMsg.ID] = true
	e.aiLoading = false
	e.mu.Unlock()
	e.notify()

	// Persist so the answer survives the authoritative refresh
	persistResp, err := e.be.AddComment(ctx, api.AddCommentParams{
		ArticleID:       e.articleID,
		Content:         answer,
		Title:           question,
		ParentCommentID: e.parentCommentID,
	})
	if err != nil {
		e.log.LogError(err, "Failed to persist AI answer", "question_id", questionID)
		return
	}

	e.mu.Lock()
	if m := e.findLocked(aiMsg.ID); m != nil {
		m.CommentID = persistResp.CommentID
	}
	e.mu.Unlock()
	e.notify()
}
