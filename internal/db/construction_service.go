package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/models"
)

// CreateConstruction inserts a new job
func CreateConstruction(tx *gorm.DB, c *models.Construction) error {
	return tx.Create(c).Error
}

// GetConstruction loads a job by id
func GetConstruction(tx *gorm.DB, id uint) (*models.Construction, error) {
	var c models.Construction
	if err := tx.First(&c, id).Error; err != nil {
		return nil, notFound(err, "construction", id)
	}
	return &c, nil
}

// ListConstructions returns all jobs; onlyRollover restricts to jobs with rollover enabled
func ListConstructions(tx *gorm.DB, onlyRollover bool) ([]models.Construction, error) {
	var out []models.Construction
	q := tx.Order("id ASC")
	if onlyRollover {
		q = q.Where("rollover_disabled = ?", false)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// BumpScheduleVersion increments the job's schedule version and returns the new value.
// The write takes the job row lock for the rest of the transaction.
func BumpScheduleVersion(tx *gorm.DB, id uint) (int64, error) {
	res := tx.Model(&models.Construction{}).Where("id = ?", id).
		UpdateColumn("schedule_version", gorm.Expr("schedule_version + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, notFound(gorm.ErrRecordNotFound, "construction", id)
	}
	var version int64
	err := tx.Model(&models.Construction{}).Where("id = ?", id).Pluck("schedule_version", &version).Error
	return version, err
}

// MarkRolledOver records the day and batch of the job's latest rollover
func MarkRolledOver(tx *gorm.DB, id uint, day time.Time, batchID string) error {
	return tx.Model(&models.Construction{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"last_rollover_on":       day,
		"last_rollover_batch_id": batchID,
	}).Error
}

// ListHolidays returns public holidays for region
func ListHolidays(tx *gorm.DB, region string) ([]models.PublicHoliday, error) {
	var out []models.PublicHoliday
	err := tx.Where("region = ?", region).Order("date ASC").Find(&out).Error
	return out, err
}

// CreateHoliday inserts a public holiday
func CreateHoliday(tx *gorm.DB, h *models.PublicHoliday) error {
	return tx.Create(h).Error
}

// ListHoldReasons returns the non-archived hold reasons
func ListHoldReasons(tx *gorm.DB) ([]models.HoldReason, error) {
	var out []models.HoldReason
	err := tx.Where("archived = ?", false).Order("name ASC").Find(&out).Error
	return out, err
}

// GetHoldReason loads a hold reason by id
func GetHoldReason(tx *gorm.DB, id uint) (*models.HoldReason, error) {
	var r models.HoldReason
	if err := tx.First(&r, id).Error; err != nil {
		return nil, notFound(err, "hold reason", id)
	}
	return &r, nil
}

// FindOrCreateHoldReason returns the reason named name, creating it when missing
func FindOrCreateHoldReason(tx *gorm.DB, name string) (*models.HoldReason, error) {
	r := models.HoldReason{Name: name}
	if err := tx.Where("name = ?", name).FirstOrCreate(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
