package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pochaneco/ai-Knowledge-api/internal/middleware"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
	"github.com/pochaneco/ai-Knowledge-api/internal/service"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=100"`
		Description string `json:"description" binding:"max=5000"`
		IsPrivate   *bool  `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	isPrivate := true
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}

	userID := middleware.GetCurrentUserID(c)
	project, err := h.projectService.Create(req.Name, req.Description, userID, isPrivate)
	if err != nil {
		Fail(c, err)
		return
	}

	data := gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"is_private":  project.IsPrivate,
		"created_at":  project.CreatedAt,
	}
	if project.Owner != nil {
		data["owner"] = project.Owner.Brief()
	}
	Created(c, data)
}

// GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	projects, err := h.projectService.ListForUser(userID)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		list = append(list, gin.H{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"owner_id":    p.OwnerID,
			"is_private":  p.IsPrivate,
			"role":        p.Role,
			"created_at":  p.CreatedAt,
			"updated_at":  p.UpdatedAt,
		})
	}
	Success(c, gin.H{"projects": list})
}

// GET /projects/:id
func (h *ProjectHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, userID, model.RoleMember) {
		Forbidden(c)
		return
	}

	project, err := h.projectService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}

	members := make([]gin.H, 0, len(project.Members))
	for _, m := range project.Members {
		item := gin.H{
			"user_id":   m.UserID,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		}
		if m.User != nil {
			item["username"] = m.User.Username
			item["email"] = m.User.Email
		}
		members = append(members, item)
	}

	data := gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"owner_id":    project.OwnerID,
		"is_private":  project.IsPrivate,
		"members":     members,
		"created_at":  project.CreatedAt,
		"updated_at":  project.UpdatedAt,
	}
	if project.Owner != nil {
		data["owner"] = project.Owner.Brief()
	}
	Success(c, data)
}

// PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, userID, model.RoleAdmin) {
		Forbidden(c)
		return
	}

	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=100"`
		Description *string `json:"description" binding:"omitempty,max=5000"`
		IsPrivate   *bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsPrivate != nil {
		updates["is_private"] = *req.IsPrivate
	}
	if len(updates) == 0 {
		BadRequest(c, 40001, "nothing to update")
		return
	}

	project, err := h.projectService.Update(id, updates)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"is_private":  project.IsPrivate,
		"updated_at":  project.UpdatedAt,
	})
}

// DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.projectService.Delete(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "project deleted"})
}

// GET /projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, userID, model.RoleMember) {
		Forbidden(c)
		return
	}

	members, err := h.projectService.ListMembers(id)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(members))
	for _, m := range members {
		item := gin.H{
			"user_id":   m.UserID,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		}
		if m.User != nil {
			item["username"] = m.User.Username
			item["email"] = m.User.Email
		}
		list = append(list, item)
	}
	Success(c, gin.H{"members": list})
}

// POST /projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	actorID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, actorID, model.RoleAdmin) {
		Forbidden(c)
		return
	}

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"omitempty,oneof=member admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}
	role := req.Role
	if role == "" {
		role = model.RoleMember
	}

	if err := h.projectService.AddMember(id, req.UserID, role); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "member added"})
}

// DELETE /projects/:id/members/:user_id
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	actorID := middleware.GetCurrentUserID(c)

	if err := h.projectService.RemoveMember(id, userID, actorID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "member removed"})
}

// POST /projects/:id/invitations
func (h *ProjectHandler) Invite(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, userID, model.RoleAdmin) {
		Forbidden(c)
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	invitation, err := h.projectService.Invite(id, req.Email, userID)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, gin.H{
		"id":         invitation.ID,
		"project_id": invitation.ProjectID,
		"email":      invitation.Email,
		"status":     invitation.Status,
		"expires_at": invitation.ExpiresAt,
	})
}

// GET /projects/:id/invitations
func (h *ProjectHandler) ListInvitations(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CheckPermission(id, userID, model.RoleAdmin) {
		Forbidden(c)
		return
	}

	invitations, err := h.projectService.ListInvitations(id)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(invitations))
	for _, inv := range invitations {
		item := gin.H{
			"id":         inv.ID,
			"email":      inv.Email,
			"status":     inv.Status,
			"expires_at": inv.ExpiresAt,
			"created_at": inv.CreatedAt,
		}
		if inv.InvitedBy != nil {
			item["invited_by"] = inv.InvitedBy.Username
		}
		list = append(list, item)
	}
	Success(c, gin.H{"invitations": list})
}

// POST /invitations/accept
func (h *ProjectHandler) AcceptInvitation(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	invitation, err := h.projectService.AcceptInvitation(req.Token)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"message":    "joined the project",
		"project_id": invitation.ProjectID,
	})
}
