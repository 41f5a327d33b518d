package models

import (
	"time"
)

// Comment represents a discussion entry on an article. A nil
// ParentCommentID marks a top-level thought starter; replies carry their
// parent's id. ReplyMessageID points at the specific reply being answered.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ArticleID       uint      `gorm:"index:idx_comments_article_parent" json:"article_id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	ParentCommentID *uint     `gorm:"index:idx_comments_article_parent" json:"parent_comment_id,omitempty"`
	ReplyMessageID  *uint     `json:"reply_message_id,omitempty"`
	Title           string    `json:"title,omitempty"`
	Content         string    `gorm:"type:text" json:"content"`
	Quote           string    `gorm:"type:text" json:"quote,omitempty"`
	Emotion         string    `json:"emotion,omitempty"`
	MiniMessage     string    `json:"minimessage,omitempty"`
	Edited          bool      `json:"edited"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Reaction is one user's reaction of one type on a comment
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"uniqueIndex:idx_reactions_comment_user_type" json:"comment_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_reactions_comment_user_type" json:"user_id"`
	Type      string    `gorm:"uniqueIndex:idx_reactions_comment_user_type" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
