package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/models"
)

// ListActiveDependencies returns a job's active edges in creation order
func ListActiveDependencies(tx *gorm.DB, constructionID uint) ([]models.Dependency, error) {
	var deps []models.Dependency
	err := tx.Where("construction_id = ? AND status = ?", constructionID, models.DependencyActive).
		Order("created_at ASC").
		Order("id ASC").
		Find(&deps).Error
	return deps, err
}

// ListRemovedDependencies returns soft-deleted edges of a job, newest first
func ListRemovedDependencies(tx *gorm.DB, constructionID uint) ([]models.Dependency, error) {
	var deps []models.Dependency
	err := tx.Unscoped().
		Where("construction_id = ? AND deleted_at IS NOT NULL", constructionID).
		Order("deleted_at DESC").
		Find(&deps).Error
	return deps, err
}

// GetDependency loads an active dependency by id
func GetDependency(tx *gorm.DB, id uint) (*models.Dependency, error) {
	var dep models.Dependency
	if err := tx.First(&dep, id).Error; err != nil {
		return nil, notFound(err, "dependency", id)
	}
	return &dep, nil
}

// FindActiveDependency returns the active edge between two tasks, or nil
func FindActiveDependency(tx *gorm.DB, predecessorID, successorID uint) (*models.Dependency, error) {
	var dep models.Dependency
	err := tx.Where("predecessor_task_id = ? AND successor_task_id = ? AND status = ?",
		predecessorID, successorID, models.DependencyActive).First(&dep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

// CreateDependency inserts an active edge
func CreateDependency(tx *gorm.DB, dep *models.Dependency) error {
	dep.Status = models.DependencyActive
	return tx.Create(dep).Error
}

// SoftDeleteDependency marks an edge removed with a reason and actor in one UPDATE
func SoftDeleteDependency(tx *gorm.DB, id uint, reason models.DeletedReason, by models.Actor, at time.Time) error {
	res := tx.Model(&models.Dependency{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":              models.DependencyRemoved,
		"deleted_at":          at,
		"deleted_reason":      reason,
		"deleted_by_kind":     by.Kind,
		"deleted_by_id":       by.ID,
		"deleted_by_rollover": reason == models.DeletedByRollover,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "dependency", id)
	}
	return nil
}
