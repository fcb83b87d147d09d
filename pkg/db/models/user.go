package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// User represents an operator in the approval workflow. Auto-matches are
// attributed to the dedicated system user.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username    string         `gorm:"column:username;not null;uniqueIndex"`
	Email       string         `gorm:"column:email;not null;uniqueIndex"`
	Role        enums.UserRole `gorm:"column:role;type:user_role;not null;default:user"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time     `gorm:"column:last_login_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
