package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pochaneco/ai-Knowledge-api/internal/middleware"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
	"github.com/pochaneco/ai-Knowledge-api/internal/service"
)

type KnowledgeHandler struct {
	knowledgeService *service.KnowledgeService
	projectService   *service.ProjectService
}

func NewKnowledgeHandler(knowledgeService *service.KnowledgeService, projectService *service.ProjectService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService, projectService: projectService}
}

func (h *KnowledgeHandler) requireMember(c *gin.Context, projectID uint) bool {
	userID := middleware.GetCurrentUserID(c)
	if !h.projectService.CheckPermission(projectID, userID, model.RoleMember) {
		Forbidden(c)
		return false
	}
	return true
}

// POST /projects/:id/knowledge
func (h *KnowledgeHandler) Create(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	var req struct {
		Title    string     `json:"title" binding:"required,max=200"`
		Content  string     `json:"content" binding:"required"`
		Category string     `json:"category" binding:"max=50"`
		Tags     model.Tags `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	item, err := h.knowledgeService.Create(projectID, userID, req.Title, req.Content, req.Category, req.Tags)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, item)
}

// GET /projects/:id/knowledge
func (h *KnowledgeHandler) List(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	items, err := h.knowledgeService.ListByProject(projectID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// GET /projects/:id/knowledge/:kb_id
func (h *KnowledgeHandler) Get(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	item, err := h.knowledgeService.Get(parseID(c.Param("kb_id")))
	if err != nil {
		Fail(c, err)
		return
	}
	if item.ProjectID != projectID {
		Forbidden(c)
		return
	}
	Success(c, item)
}

// PUT /projects/:id/knowledge/:kb_id
func (h *KnowledgeHandler) Update(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	item, err := h.knowledgeService.Get(parseID(c.Param("kb_id")))
	if err != nil {
		Fail(c, err)
		return
	}
	if item.ProjectID != projectID {
		Forbidden(c)
		return
	}

	var req struct {
		Title    *string     `json:"title" binding:"omitempty,max=200"`
		Content  *string     `json:"content"`
		Category *string     `json:"category" binding:"omitempty,max=50"`
		Tags     *model.Tags `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if len(updates) == 0 {
		BadRequest(c, 40001, "nothing to update")
		return
	}

	updated, err := h.knowledgeService.Update(item.ID, updates)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, updated)
}

// DELETE /projects/:id/knowledge/:kb_id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	item, err := h.knowledgeService.Get(parseID(c.Param("kb_id")))
	if err != nil {
		Fail(c, err)
		return
	}
	if item.ProjectID != projectID {
		Forbidden(c)
		return
	}

	if err := h.knowledgeService.Delete(item.ID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "knowledge item deleted"})
}

// GET /projects/:id/search?q=...
func (h *KnowledgeHandler) Search(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.requireMember(c, projectID) {
		return
	}

	query := c.Query("q")
	if query == "" {
		BadRequest(c, 40001, "missing search query")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	items, err := h.knowledgeService.Search(projectID, userID, query)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"items": items, "query": query})
}
