package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/internal/models"

	"gorm.io/gorm"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyContent    = errors.New("comment content is empty")
)

// recentRepliesLimit caps the reply preview embedded in a thought starter
const recentRepliesLimit = 3

// Notifier receives comment and reaction changes for live broadcast
type Notifier interface {
	CommentAdded(articleID uint, row api.SubComment)
	ReactionChanged(articleID uint, commentID uint, reactionType string, count int, userName string)
}

// CommentService handles the discussion threads on articles
type CommentService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewCommentService creates a new comment service
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// SetNotifier wires the live update broadcaster
func (s *CommentService) SetNotifier(n Notifier) {
	s.notifier = n
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func wireUserID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// reactionCounts aggregates reaction tallies per type for one comment
func (s *CommentService) reactionCounts(commentID uint) ([]api.ReactionCount, error) {
	var rows []api.ReactionCount
	err := s.db.Model(&models.Reaction{}).
		Select("type, COUNT(*) as count").
		Where("comment_id = ?", commentID).
		Group("type").
		Scan(&rows).Error
	return rows, err
}

// userReaction returns whether the user reacted to the comment and with what
func (s *CommentService) userReaction(commentID, userID uint) (bool, *string, error) {
	var reaction models.Reaction
	result := s.db.Where("comment_id = ? AND user_id = ?", commentID, userID).First(&reaction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, result.Error
	}
	return true, &reaction.Type, nil
}

// ListComments returns a page of top-level comments, newest first,
// with cursor pagination keyed on comment id
func (s *CommentService) ListComments(currentUserID uint, params api.FetchCommentsParams) (*api.CommentsResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	q := s.db.Preload("User").
		Where("article_id = ? AND parent_comment_id IS NULL", params.ArticleID).
		Order("id DESC").
		Limit(limit + 1)

	if params.Cursor != "" {
		cursorID, err := strconv.ParseUint(params.Cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", params.Cursor, err)
		}
		q = q.Where("id < ?", cursorID)
	}

	var comments []models.Comment
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}

	hasMore := len(comments) > limit
	if hasMore {
		comments = comments[:limit]
	}

	out := &api.CommentsResponse{Comments: make([]api.Comment, 0, len(comments))}
	for _, c := range comments {
		row, err := s.commentRow(c, currentUserID)
		if err != nil {
			return nil, err
		}
		out.Comments = append(out.Comments, row)
	}

	out.Pagination.HasMore = hasMore
	if hasMore && len(comments) > 0 {
		cursor := strconv.FormatUint(uint64(comments[len(comments)-1].ID), 10)
		out.Pagination.NextCursor = &cursor
	}
	return out, nil
}

func (s *CommentService) commentRow(c models.Comment, currentUserID uint) (api.Comment, error) {
	reactions, err := s.reactionCounts(c.ID)
	if err != nil {
		return api.Comment{}, err
	}
	userReacted, reactionType, err := s.userReaction(c.ID, currentUserID)
	if err != nil {
		return api.Comment{}, err
	}

	var childCount int64
	if err := s.db.Model(&models.Comment{}).
		Where("parent_comment_id = ?", c.ID).
		Count(&childCount).Error; err != nil {
		return api.Comment{}, err
	}

	var recent []models.Comment
	if err := s.db.Preload("User").
		Where("parent_comment_id = ?", c.ID).
		Order("id DESC").
		Limit(recentRepliesLimit).
		Find(&recent).Error; err != nil {
		return api.Comment{}, err
	}

	row := api.Comment{
		CommentID:         int64(c.ID),
		Title:             c.Title,
		Edited:            c.Edited,
		MiniMessage:       c.MiniMessage,
		OriginalContent:   c.Content,
		Content:           c.Content,
		Quote:             c.Quote,
		CreatedAt:         wireTime(c.CreatedAt),
		UserID:            wireUserID(c.UserID),
		UserName:          c.User.Name,
		UserPicture:       c.User.DisplayPic,
		UserReacted:       userReacted,
		ReactionType:      reactionType,
		Reactions:         reactions,
		ChildCommentCount: int(childCount),
	}

	for _, r := range recent {
		row.RecentChildComments = append(row.RecentChildComments, api.CommentAuthor{
			CommentID:       int64(r.ID),
			UserID:          wireUserID(r.UserID),
			UserName:        r.User.Name,
			UserPicture:     r.User.DisplayPic,
			OriginalContent: r.Content,
			Content:         r.Content,
			Quote:           r.Quote,
			Edited:          r.Edited,
			MiniMessage:     r.MiniMessage,
			CreatedAt:       wireTime(r.CreatedAt),
		})
	}

	return row, nil
}

// ListSubComments returns a thread's replies in chronological order
func (s *CommentService) ListSubComments(currentUserID uint, params api.FetchSubCommentsParams) (*api.SubCommentsResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	var parent models.Comment
	result := s.db.Preload("User").First(&parent, params.ParentCommentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, result.Error
	}

	var replies []models.Comment
	if err := s.db.Preload("User").
		Where("parent_comment_id = ?", parent.ID).
		Order("id ASC").
		Limit(limit).
		Find(&replies).Error; err != nil {
		return nil, err
	}

	out := &api.SubCommentsResponse{Comments: make([]api.SubComment, 0, len(replies))}
	for _, r := range replies {
		row, err := s.subCommentRow(r, parent, currentUserID)
		if err != nil {
			return nil, err
		}
		out.Comments = append(out.Comments, row)
	}
	return out, nil
}

func (s *CommentService) subCommentRow(r models.Comment, parent models.Comment, currentUserID uint) (api.SubComment, error) {
	reactions, err := s.reactionCounts(r.ID)
	if err != nil {
		return api.SubComment{}, err
	}
	userReacted, reactionType, err := s.userReaction(r.ID, currentUserID)
	if err != nil {
		return api.SubComment{}, err
	}

	row := api.SubComment{
		CommentID:             int64(r.ID),
		ReactionType:          reactionType,
		Title:                 r.Title,
		Edited:                r.Edited,
		Emotion:               r.Emotion,
		MiniMessage:           r.MiniMessage,
		OriginalContent:       r.Content,
		Content:               r.Content,
		Quote:                 r.Quote,
		CreatedAt:             wireTime(r.CreatedAt),
		UserID:                wireUserID(r.UserID),
		UserName:              r.User.Name,
		UserPicture:           r.User.DisplayPic,
		ParentCommentID:       int64(parent.ID),
		OriginalParentContent: parent.Content,
		ParentContent:         parent.Content,
		ParentUserID:          wireUserID(parent.UserID),
		ParentUserName:        parent.User.Name,
		UserReacted:           userReacted,
		Reactions:             reactions,
	}

	if r.ReplyMessageID != nil {
		var replied models.Comment
		if err := s.db.First(&replied, *r.ReplyMessageID).Error; err == nil {
			id := int64(replied.ID)
			row.ReplyMessageID = &id
			row.ReplyMessage = &replied.Content
		}
	}

	return row, nil
}

// AddComment creates a comment or reply and broadcasts it to the article room
func (s *CommentService) AddComment(currentUserID uint, params api.AddCommentParams) (*api.AddCommentResponse, error) {
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrEmptyContent
	}

	var article models.Article
	result := s.db.First(&article, params.ArticleID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, result.Error
	}

	comment := models.Comment{
		ArticleID:   uint(params.ArticleID),
		UserID:      currentUserID,
		Title:       params.Title,
		Content:     params.Content,
		Quote:       params.Quote,
		Emotion:     params.Emotion,
		MiniMessage: params.MiniMessage,
	}

	var parent *models.Comment
	if params.ParentCommentID != 0 {
		parent = &models.Comment{}
		result := s.db.Preload("User").First(parent, params.ParentCommentID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, result.Error
		}
		parentID := parent.ID
		comment.ParentCommentID = &parentID
	}

	if params.ReplyMessageID != "" {
		if id, err := strconv.ParseUint(params.ReplyMessageID, 10, 64); err == nil {
			replyID := uint(id)
			comment.ReplyMessageID = &replyID
		}
	}

	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil && parent != nil {
		if err := s.db.Preload("User").First(&comment, comment.ID).Error; err == nil {
			if row, err := s.subCommentRow(comment, *parent, currentUserID); err == nil {
				s.notifier.CommentAdded(comment.ArticleID, row)
			}
		}
	}

	return &api.AddCommentResponse{
		CommentID: int64(comment.ID),
		CreatedAt: wireTime(comment.CreatedAt),
	}, nil
}

// ToggleReaction flips one user's reaction of one type on a comment and
// returns the authoritative count
func (s *CommentService) ToggleReaction(currentUserID uint, params api.ToggleReactionParams) (*api.ToggleReactionResponse, error) {
	var comment models.Comment
	result := s.db.Preload("User").First(&comment, params.TargetID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, result.Error
	}

	var existing models.Reaction
	result = s.db.Where("comment_id = ? AND user_id = ? AND type = ?",
		comment.ID, currentUserID, params.ReactionType).First(&existing)

	userReacted := false
	switch {
	case result.Error == nil:
		if err := s.db.Delete(&existing).Error; err != nil {
			return nil, err
		}
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		reaction := models.Reaction{
			CommentID: comment.ID,
			UserID:    currentUserID,
			Type:      params.ReactionType,
		}
		if err := s.db.Create(&reaction).Error; err != nil {
			return nil, err
		}
		userReacted = true
	default:
		return nil, result.Error
	}

	var count int64
	if err := s.db.Model(&models.Reaction{}).
		Where("comment_id = ? AND type = ?", comment.ID, params.ReactionType).
		Count(&count).Error; err != nil {
		return nil, err
	}

	if s.notifier != nil {
		var user models.User
		s.db.First(&user, currentUserID)
		s.notifier.ReactionChanged(comment.ArticleID, comment.ID, params.ReactionType, int(count), user.Name)
	}

	return &api.ToggleReactionResponse{
		UserReacted:   userReacted,
		ReactionCount: int(count),
	}, nil
}
