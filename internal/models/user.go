// Package models contains data structures for the blog's domain records.
package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultImageFile is the profile picture every account starts with.
const DefaultImageFile = "default.jpg"

// Field limits shared by records and forms.
const (
	UsernameMinLen  = 5
	UsernameMaxLen  = 20
	EmailMaxLen     = 100
	ImageFileMaxLen = 64
	PasswordMinLen  = 6
	TitleMaxLen     = 100
)

// User represents a registered author.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:60;not null" json:"-"`
	ImageFile    string    `gorm:"size:64;not null;default:default.jpg" json:"image_file"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the column constraints before a write is issued.
func (u *User) Validate() error {
	n := utf8.RuneCountInString(u.Username)
	if n < UsernameMinLen || n > UsernameMaxLen {
		return NewFieldError("username", fmt.Sprintf("Username must be between %d and %d characters", UsernameMinLen, UsernameMaxLen))
	}
	if u.Email == "" || len(u.Email) > EmailMaxLen {
		return NewFieldError("email", fmt.Sprintf("Email is required and must be at most %d characters", EmailMaxLen))
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewFieldError("email", "Invalid email address")
	}
	if u.PasswordHash == "" {
		return NewValidationError("password hash is required")
	}
	if u.ImageFile == "" {
		u.ImageFile = DefaultImageFile
	}
	if len(u.ImageFile) > ImageFileMaxLen {
		return NewFieldError("picture", "Image file name is too long")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) String() string {
	return fmt.Sprintf("User(%q, %q, %q)", u.Username, u.Email, u.ImageFile)
}
