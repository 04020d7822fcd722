package service

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/model"
)

type KnowledgeService struct {
	db *gorm.DB
}

func NewKnowledgeService(db *gorm.DB) *KnowledgeService {
	return &KnowledgeService{db: db}
}

func (s *KnowledgeService) Create(projectID, createdByID uint, title, content, category string, tags model.Tags) (*model.KnowledgeItem, error) {
	item := model.KnowledgeItem{
		Title:       title,
		Content:     content,
		Category:    category,
		Tags:        tags,
		ProjectID:   projectID,
		CreatedByID: createdByID,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, internal("create knowledge item", err)
	}
	return &item, nil
}

func (s *KnowledgeService) Get(id uint) (*model.KnowledgeItem, error) {
	var item model.KnowledgeItem
	if err := s.db.Preload("CreatedBy").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKnowledgeNotFound
		}
		return nil, internal("get knowledge item", err)
	}
	return &item, nil
}

func (s *KnowledgeService) ListByProject(projectID uint) ([]model.KnowledgeItem, error) {
	var items []model.KnowledgeItem
	err := s.db.Preload("CreatedBy").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, internal("list knowledge items", err)
	}
	return items, nil
}

func (s *KnowledgeService) Update(id uint, updates map[string]interface{}) (*model.KnowledgeItem, error) {
	var item model.KnowledgeItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKnowledgeNotFound
		}
		return nil, internal("update knowledge item: lookup", err)
	}
	if err := s.db.Model(&item).Updates(updates).Error; err != nil {
		return nil, internal("update knowledge item", err)
	}
	return s.Get(id)
}

func (s *KnowledgeService) Delete(id uint) error {
	result := s.db.Delete(&model.KnowledgeItem{}, id)
	if result.Error != nil {
		return internal("delete knowledge item", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKnowledgeNotFound
	}
	return nil
}

// Search matches the query against title and content within one project and
// records a search log row. A failed log write does not fail the search.
func (s *KnowledgeService) Search(projectID, userID uint, query string) ([]model.KnowledgeItem, error) {
	var items []model.KnowledgeItem
	pattern := "%" + query + "%"
	err := s.db.Where("project_id = ? AND (title LIKE ? OR content LIKE ?)", projectID, pattern, pattern).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, internal("search knowledge", err)
	}

	logRow := model.SearchLog{QueryText: query, UserID: userID, ProjectID: projectID}
	if err := s.db.Create(&logRow).Error; err != nil {
		log.Printf("record search log: %v", err)
	}
	return items, nil
}
