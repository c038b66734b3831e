package db

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/models"
)

// GetTask loads a task by id
func GetTask(tx *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := tx.First(&task, id).Error; err != nil {
		return nil, notFound(err, "task", id)
	}
	return &task, nil
}

// GetTaskByNumber loads a task by its number within a job
func GetTaskByNumber(tx *gorm.DB, constructionID uint, number int) (*models.Task, error) {
	var task models.Task
	err := tx.Where("construction_id = ? AND task_number = ?", constructionID, number).First(&task).Error
	if err != nil {
		return nil, notFound(err, "task number", uint(number))
	}
	return &task, nil
}

// ListTasks returns a job's tasks in schedule order
func ListTasks(tx *gorm.DB, constructionID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := tx.Where("construction_id = ?", constructionID).
		Order("sequence_order ASC").
		Order("task_number ASC").
		Find(&tasks).Error
	return tasks, err
}

// NextTaskNumber returns one more than the highest task number in the job
func NextTaskNumber(tx *gorm.DB, constructionID uint) (int, error) {
	var max sql.NullInt64
	err := tx.Model(&models.Task{}).Where("construction_id = ?", constructionID).
		Select("MAX(task_number)").Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

// CreateTask inserts a task
func CreateTask(tx *gorm.DB, task *models.Task) error {
	return tx.Create(task).Error
}

// UpdateTaskColumns writes the given columns of one task in a single UPDATE
func UpdateTaskColumns(tx *gorm.DB, id uint, columns map[string]interface{}) error {
	res := tx.Model(&models.Task{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "task", id)
	}
	return nil
}

// CountChildren returns how many tasks name id as their parent
func CountChildren(tx *gorm.DB, id uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Task{}).Where("parent_task_id = ?", id).Count(&n).Error
	return n, err
}
