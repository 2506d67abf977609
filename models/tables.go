package models

import "time"

type User struct {
	ID           int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Posts        []Post `json:"-"`
}

type Post struct {
	ID        uint      `gorm:"primary_key"`
	UserID    int       `gorm:"not null;index" json:"user_id"` // author, filled from the session
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	TopImage  *string   `json:"top_image,omitempty"` // URL path of the cover image, nil when none
	Published bool      `gorm:"index" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:UserID" json:"-"`
}

// PostVisit is one counted view of a public post page.
type PostVisit struct {
	ID        uint      `gorm:"primary_key;autoIncrement"`
	PostID    int       `gorm:"not null;index"`
	CookieID  string    `gorm:"not null;index"`
	IP        string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}
