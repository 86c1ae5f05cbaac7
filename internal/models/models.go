package models

import (
	"regexp"
	"time"
)

const (
	DefaultListColor         = "#3B82F6"
	DefaultCreatorColor      = "#3B82F6"
	DefaultJoinerColor       = "#EF4444"
	MaxCoupleMembers         = 2
	MaxUsernameLength        = 50
	MaxTitleLength           = 200
	MaxDescriptionLength     = 1000
	MaxActivityMessageLength = 500
)

var colorCodePattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColorCode reports whether s has the #RRGGBB form.
func ValidColorCode(s string) bool {
	return colorCodePattern.MatchString(s)
}

type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ColorCode    string    `db:"color_code" json:"color_code"`
	CoupleID     *int      `db:"couple_id" json:"couple_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Paired reports whether the user belongs to a couple.
func (u *User) Paired() bool {
	return u.CoupleID != nil
}

type Couple struct {
	ID          int       `db:"id" json:"id"`
	InviteToken string    `db:"invite_token" json:"-"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type TodoList struct {
	ID          int       `db:"id" json:"id"`
	OwnerID     int       `db:"owner_id" json:"owner_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	IsShared    bool      `db:"is_shared" json:"is_shared"`
	ColorCode   string    `db:"color_code" json:"color_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type TodoItem struct {
	ID          int       `db:"id" json:"id"`
	TodoListID  int       `db:"todo_list_id" json:"todo_list_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Status      Status    `db:"status" json:"status"`
	Severity    Severity  `db:"severity" json:"severity"`
	Order       int       `db:"order" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OwnedItem is an item joined with the owner of its list.
type OwnedItem struct {
	TodoItem
	OwnerID int `db:"owner_id" json:"owner_id"`
}

type RefreshToken struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	IsRevoked bool      `db:"is_revoked"`
}

type Activity struct {
	ID           int          `db:"id" json:"id"`
	UserID       int          `db:"user_id" json:"user_id"`
	ActivityType ActivityType `db:"activity_type" json:"activity_type"`
	EntityType   EntityType   `db:"entity_type" json:"entity_type"`
	EntityID     int          `db:"entity_id" json:"entity_id"`
	EntityTitle  string       `db:"entity_title" json:"entity_title"`
	Message      string       `db:"message" json:"message"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// ActivityEntry is an activity joined with its actor's display fields.
type ActivityEntry struct {
	Activity
	Username  string `db:"username" json:"username"`
	ColorCode string `db:"color_code" json:"color_code"`
}
