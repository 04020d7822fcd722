package model

import (
	"fmt"
	"time"
)

// Invitation statuses. Pending is the only non-terminal state; once an
// invitation is accepted, rejected or expired it never transitions again.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
	InvitationExpired  = "expired"
)

type ProjectInvitation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index:idx_invitation_project" json:"project_id"`
	Email       string    `gorm:"type:varchar(100);not null;index:idx_invitation_email" json:"email"`
	InvitedByID uint      `gorm:"not null" json:"invited_by_id"`
	Token       string    `gorm:"type:varchar(255);uniqueIndex:uk_invitation_token;not null" json:"-"`
	Status      string    `gorm:"type:varchar(20);not null;default:pending;index:idx_invitation_status" json:"status"`
	ExpiresAt   time.Time `gorm:"not null;index:idx_invitation_expires" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`

	// PendingKey is "<project_id>:<email>" while the invitation is pending
	// and NULL once it reaches a terminal state. The unique index makes the
	// one-pending-per-pair rule a database constraint rather than a
	// read-then-insert check.
	PendingKey *string `gorm:"type:varchar(120);uniqueIndex:uk_invitation_pending" json:"-"`

	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	InvitedBy *User    `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

func (ProjectInvitation) TableName() string { return "project_invitations" }

// InvitationPendingKey builds the value stored in PendingKey for a pending
// invitation.
func InvitationPendingKey(projectID uint, email string) string {
	return fmt.Sprintf("%d:%s", projectID, email)
}

// Terminal reports whether the invitation can no longer transition.
func (i *ProjectInvitation) Terminal() bool { return i.Status != InvitationPending }
