package model

import "time"

// ProjectMember is the join row asserting a user belongs to a project with a
// specific role. The composite unique index makes insert-if-absent race-safe:
// a concurrent duplicate insert fails the constraint instead of creating a
// second row.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:uk_project_user" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_project_user;index:idx_user_id" json:"user_id"`
	Role      string    `gorm:"type:varchar(20);not null;default:member" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectMember) TableName() string { return "project_members" }
