package tables

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	Id           uuid.UUID  `json:"id" bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string     `json:"email" bun:"email,unique,notnull"`
	FullName     string     `json:"full_name" bun:"full_name,notnull"`
	Phone        string     `json:"phone,omitempty" bun:"phone"` // AES-GCM ciphertext at rest
	PasswordHash string     `json:"-" bun:"password_hash,notnull"`
	Role         string     `json:"role" bun:"role,notnull,default:'customer'"`
	LastLogin    *time.Time `json:"last_login,omitempty" bun:"last_login,nullzero"`
	CreatedAt    time.Time  `json:"created_at" bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `json:"updated_at" bun:"updated_at,notnull,default:current_timestamp"`
}

// Public returns a copy that is safe to send to clients
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}
