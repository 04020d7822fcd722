package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/mailer"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
)

type ProjectService struct {
	db            *gorm.DB
	mailer        mailer.Mailer
	baseURL       string
	invitationTTL time.Duration
	now           func() time.Time
}

type ProjectOptions struct {
	BaseURL       string
	InvitationTTL time.Duration
}

func NewProjectService(db *gorm.DB, m mailer.Mailer, opts ProjectOptions) *ProjectService {
	if opts.InvitationTTL <= 0 {
		opts.InvitationTTL = 7 * 24 * time.Hour
	}
	return &ProjectService{
		db:            db,
		mailer:        m,
		baseURL:       opts.BaseURL,
		invitationTTL: opts.InvitationTTL,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Used by tests to drive invitation
// expiry.
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// Create persists the project and its owner membership atomically. The
// owner always holds the owner role; there is exactly one such row per
// project and it is never created through any other path.
func (s *ProjectService) Create(name, description string, ownerID uint, isPrivate bool) (*model.Project, error) {
	project := model.Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		IsPrivate:   isPrivate,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		owner := model.ProjectMember{
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      model.RoleOwner,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, internal("create project", err)
	}

	if err := s.db.Preload("Owner").First(&project, project.ID).Error; err != nil {
		return nil, internal("create project: reload", err)
	}
	return &project, nil
}

func (s *ProjectService) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	err := s.db.Preload("Owner").Preload("Members.User").First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, internal("get project", err)
	}
	return &project, nil
}

func (s *ProjectService) Update(id uint, updates map[string]interface{}) (*model.Project, error) {
	if err := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, internal("update project", err)
	}
	return s.GetByID(id)
}

// Delete removes a project together with its memberships, invitations and
// knowledge items. Only the project owner may do this; admins can edit a
// project but never destroy it.
func (s *ProjectService) Delete(id, actorID uint) error {
	var project model.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return internal("delete project: lookup", err)
	}
	if project.OwnerID != actorID {
		return ErrForbidden
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.SearchLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.KnowledgeItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	})
	if err != nil {
		return internal("delete project", err)
	}
	return nil
}

// ProjectWithRole pairs a project with the caller's membership role in it.
type ProjectWithRole struct {
	model.Project
	Role string `json:"role"`
}

// ListForUser returns one row per project the user belongs to, with the role
// recorded in the membership row, newest project first.
func (s *ProjectService) ListForUser(userID uint) ([]ProjectWithRole, error) {
	var rows []ProjectWithRole
	err := s.db.Model(&model.Project{}).
		Select("projects.*, project_members.role AS role").
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, internal("list projects", err)
	}
	return rows, nil
}

// ListMembers returns the membership rows of a project with their users
// loaded, oldest membership first.
func (s *ProjectService) ListMembers(projectID uint) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := s.db.Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, internal("list members", err)
	}
	return members, nil
}

func (s *ProjectService) roleOf(projectID, userID uint) (string, bool) {
	var member model.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		return "", false
	}
	return member.Role, true
}

// CheckPermission reports whether the user's membership role ranks at least
// requiredRole. A user with no membership row never passes, whatever the
// required role.
func (s *ProjectService) CheckPermission(projectID, userID uint, requiredRole string) bool {
	role, ok := s.roleOf(projectID, userID)
	if !ok {
		return false
	}
	required := model.RoleRank(requiredRole)
	if required == 0 {
		required = model.RoleRank(model.RoleMember)
	}
	return model.RoleRank(role) >= required
}

// AddMember inserts a membership row if absent. The composite unique index
// on (project_id, user_id) is the arbiter under concurrency; a duplicate
// insert surfaces as ErrAlreadyMember and never upgrades the existing role.
func (s *ProjectService) AddMember(projectID, userID uint, role string) error {
	return s.addMember(s.db, projectID, userID, role)
}

func (s *ProjectService) addMember(db *gorm.DB, projectID, userID uint, role string) error {
	var count int64
	if err := db.Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return internal("add member: lookup", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}

	member := model.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return internal("add member: insert", err)
	}
	return nil
}

// RemoveMember deletes a membership row. The project owner can never be
// removed through this path, not even by themself, and the actor must hold
// at least the admin role.
func (s *ProjectService) RemoveMember(projectID, userID, actorID uint) error {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return internal("remove member: project", err)
	}
	if project.OwnerID == userID {
		return ErrOwnerProtected
	}
	if !s.CheckPermission(projectID, actorID, model.RoleAdmin) {
		return ErrForbidden
	}

	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{})
	if result.Error != nil {
		return internal("remove member: delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Invite creates a pending invitation for an email address and mails the
// accept link. At most one pending invitation may exist per (project, email)
// pair; like AddMember this is enforced by a unique index (on the pending
// key), so two racing invites cannot both commit. Addresses that already map
// to a member are refused.
func (s *ProjectService) Invite(projectID uint, email string, invitedByID uint) (*model.ProjectInvitation, error) {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, internal("invite: project", err)
	}

	pendingKey := model.InvitationPendingKey(projectID, email)
	invitation := model.ProjectInvitation{
		ProjectID:   projectID,
		Email:       email,
		InvitedByID: invitedByID,
		Status:      model.InvitationPending,
		PendingKey:  &pendingKey,
		ExpiresAt:   s.now().Add(s.invitationTTL),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&model.ProjectInvitation{}).
			Where("project_id = ? AND email = ? AND status = ?", projectID, email, model.InvitationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicatePending
		}

		var user model.User
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			var member int64
			if err := tx.Model(&model.ProjectMember{}).
				Where("project_id = ? AND user_id = ?", projectID, user.ID).
				Count(&member).Error; err != nil {
				return err
			}
			if member > 0 {
				return ErrAlreadyMember
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tok, err := randomToken()
		if err != nil {
			return err
		}
		invitation.Token = tok
		if err := tx.Create(&invitation).Error; err != nil {
			// A racing invite for the same (project, email) pair lost to
			// the unique index on the pending key.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePending
			}
			return err
		}
		return nil
	})
	if err != nil {
		var kind *Error
		if errors.As(err, &kind) {
			return nil, kind
		}
		return nil, internal("invite: create", err)
	}

	s.sendInvitationEmail(&project, &invitation)
	return &invitation, nil
}

func (s *ProjectService) sendInvitationEmail(project *model.Project, invitation *model.ProjectInvitation) {
	var inviter model.User
	inviterName := "A project member"
	if err := s.db.First(&inviter, invitation.InvitedByID).Error; err == nil {
		inviterName = inviter.Username
	}
	url := fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, invitation.Token)
	subject, body := mailer.InvitationEmail(inviterName, project.Name, project.Description, url, invitation.ExpiresAt)
	if err := s.mailer.Send(invitation.Email, subject, body); err != nil {
		// Best-effort: the invitation row is already durable.
		log.Printf("send invitation mail: %v", err)
	}
}

// AcceptInvitation resolves a pending invitation by its opaque token.
// Expiry is discovered lazily here: a stale invitation is flipped to
// expired (the transition is persisted even though the call fails) and a
// later accept of the same token reports not-found, not expired-again. The
// accept itself runs in a transaction with a status guard so two concurrent
// accepts of one token cannot both succeed.
func (s *ProjectService) AcceptInvitation(tokenStr string) (*model.ProjectInvitation, error) {
	var invitation model.ProjectInvitation
	err := s.db.Where("token = ? AND status = ?", tokenStr, model.InvitationPending).
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, internal("accept invitation: lookup", err)
	}

	if s.now().After(invitation.ExpiresAt) {
		if err := s.transition(&invitation, model.InvitationExpired); err != nil && !errors.Is(err, ErrInvitationNotFound) {
			return nil, err
		}
		return nil, ErrInvitationExpired
	}

	var user model.User
	err = s.db.Where("email = ?", invitation.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAccount
		}
		return nil, internal("accept invitation: user", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.addMember(tx, invitation.ProjectID, user.ID, model.RoleMember); err != nil {
			return err
		}
		result := tx.Model(&model.ProjectInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, model.InvitationPending).
			Updates(map[string]interface{}{"status": model.InvitationAccepted, "pending_key": nil})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvitationNotFound
		}
		return nil
	})
	if err != nil {
		var kind *Error
		if errors.As(err, &kind) {
			return nil, kind
		}
		return nil, internal("accept invitation: commit", err)
	}

	invitation.Status = model.InvitationAccepted
	invitation.PendingKey = nil
	return &invitation, nil
}

// RejectInvitation moves a pending invitation to its terminal rejected
// state. Not exposed over HTTP; the transition exists for completeness.
func (s *ProjectService) RejectInvitation(tokenStr string) error {
	var invitation model.ProjectInvitation
	err := s.db.Where("token = ? AND status = ?", tokenStr, model.InvitationPending).
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		return internal("reject invitation: lookup", err)
	}
	return s.transition(&invitation, model.InvitationRejected)
}

// transition applies a pending -> terminal status change with a guard on the
// current status, so a lost race shows up as zero affected rows instead of a
// second transition out of a terminal state. Clearing the pending key frees
// the (project, email) pair for a fresh invitation.
func (s *ProjectService) transition(invitation *model.ProjectInvitation, status string) error {
	result := s.db.Model(&model.ProjectInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, model.InvitationPending).
		Updates(map[string]interface{}{"status": status, "pending_key": nil})
	if result.Error != nil {
		return internal("invitation transition", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	invitation.Status = status
	invitation.PendingKey = nil
	return nil
}

func (s *ProjectService) ListInvitations(projectID uint) ([]model.ProjectInvitation, error) {
	var invitations []model.ProjectInvitation
	err := s.db.Preload("InvitedBy").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, internal("list invitations", err)
	}
	return invitations, nil
}

// randomToken returns a high-entropy opaque token. Invitations are looked up
// by exact match against the stored value, so unlike the signed account
// tokens there is nothing to derive or verify.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
