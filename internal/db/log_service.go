package db

import (
	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/models"
)

// ListRolloverLogs returns a job's rollover audit rows, oldest first
func ListRolloverLogs(tx *gorm.DB, constructionID uint) ([]models.RolloverLog, error) {
	var logs []models.RolloverLog
	err := tx.Where("construction_id = ?", constructionID).Order("id ASC").Find(&logs).Error
	return logs, err
}

// ListHoldLogs returns the hold events of a task, oldest first
func ListHoldLogs(tx *gorm.DB, taskID uint) ([]models.HoldLog, error) {
	var logs []models.HoldLog
	err := tx.Where("task_id = ?", taskID).Order("id ASC").Find(&logs).Error
	return logs, err
}

// ListSpawnLogs returns what a parent task spawned
func ListSpawnLogs(tx *gorm.DB, parentTaskID uint) ([]models.SpawnLog, error) {
	var logs []models.SpawnLog
	err := tx.Where("parent_task_id = ?", parentTaskID).Order("id ASC").Find(&logs).Error
	return logs, err
}

// CountSpawns counts earlier spawns of one type from a parent
func CountSpawns(tx *gorm.DB, parentTaskID uint, spawnType models.SpawnType) (int64, error) {
	var n int64
	err := tx.Model(&models.SpawnLog{}).
		Where("parent_task_id = ? AND spawn_type = ?", parentTaskID, spawnType).
		Count(&n).Error
	return n, err
}
