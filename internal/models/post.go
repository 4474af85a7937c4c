package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Post represents a blog entry written by a User.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:100;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	// CreatedAt is set once on insert and never updated.
	CreatedAt time.Time `gorm:"<-:create;autoCreateTime;index" json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"author"`
}

// Validate checks the column constraints before a write is issued.
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewFieldError("title", "Title is required")
	}
	if utf8.RuneCountInString(p.Title) > TitleMaxLen {
		return NewFieldError("title", fmt.Sprintf("Title must be at most %d characters", TitleMaxLen))
	}
	if strings.TrimSpace(p.Content) == "" {
		return NewFieldError("content", "Content is required")
	}
	if p.UserID == 0 {
		return NewValidationError("post must have an author")
	}
	return nil
}

func (p Post) String() string {
	return fmt.Sprintf("Post(%q, %s)", p.Title, p.CreatedAt.Format(time.RFC3339))
}
