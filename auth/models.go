package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

// User is the account model. Email is stored lower case.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name           string     `bun:"name,notnull" json:"name"`
	Email          string     `bun:"email,notnull,unique" json:"email"`
	EmailVerified  bool       `bun:"email_verified,notnull,default:false" json:"email_verified"`
	Image          string     `bun:"image" json:"image,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Role           UserRole   `bun:"role,notnull" json:"role"`
	LoginAttempts  int        `bun:"login_attempts,notnull,default:0" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// HasPassword is false for accounts created through a social provider.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// Initials is used by the avatar fallback.
func (u *User) Initials() string {
	if u == nil {
		return ""
	}
	var out []rune
	for _, part := range strings.Fields(u.Name) {
		out = append(out, []rune(strings.ToUpper(part))[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 && u.Email != "" {
		out = append(out, []rune(strings.ToUpper(u.Email))[0])
	}
	return string(out)
}

// NormalizeEmail is applied on every write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Models lists the tables this package owns.
func Models() []any {
	return []any{(*User)(nil)}
}
