package database

import (
	"time"

	"gorm.io/gorm"
)

// TransmissionRepository handles transmission database operations
type TransmissionRepository struct {
	db *gorm.DB
}

// NewTransmissionRepository creates a new transmission repository
func NewTransmissionRepository(db *gorm.DB) *TransmissionRepository {
	return &TransmissionRepository{db: db}
}

// Create adds a new transmission record
func (r *TransmissionRepository) Create(tx *Transmission) error {
	return r.db.Create(tx).Error
}

// GetRecent retrieves the most recent N transmissions
func (r *TransmissionRepository) GetRecent(limit int) ([]Transmission, error) {
	var transmissions []Transmission
	err := r.db.Order("start_time DESC").Limit(limit).Find(&transmissions).Error
	return transmissions, err
}

// GetRecentPaginated retrieves transmissions with pagination
func (r *TransmissionRepository) GetRecentPaginated(page, perPage int) ([]Transmission, int64, error) {
	var transmissions []Transmission
	var total int64

	if err := r.db.Model(&Transmission{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := r.db.Order("start_time DESC").
		Offset(offset).
		Limit(perPage).
		Find(&transmissions).Error

	return transmissions, total, err
}

// GetByUser retrieves transmissions made by a callsign
func (r *TransmissionRepository) GetByUser(callsign string, limit int) ([]Transmission, error) {
	var transmissions []Transmission
	err := r.db.Where("my_call1 = ?", callsign).
		Order("start_time DESC").
		Limit(limit).
		Find(&transmissions).Error
	return transmissions, err
}

// GetByRepeater retrieves transmissions heard on one repeater
func (r *TransmissionRepository) GetByRepeater(repeater string, limit int) ([]Transmission, error) {
	var transmissions []Transmission
	err := r.db.Where("repeater = ?", repeater).
		Order("start_time DESC").
		Limit(limit).
		Find(&transmissions).Error
	return transmissions, err
}

// DeleteOlderThan deletes transmissions older than the specified time
func (r *TransmissionRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("start_time < ?", before).Delete(&Transmission{})
	return result.RowsAffected, result.Error
}

// HeaderRepository handles the header log
type HeaderRepository struct {
	db *gorm.DB
}

// NewHeaderRepository creates a new header repository
func NewHeaderRepository(db *gorm.DB) *HeaderRepository {
	return &HeaderRepository{db: db}
}

// Create adds a header record
func (r *HeaderRepository) Create(h *HeaderLog) error {
	return r.db.Create(h).Error
}

// GetRecent retrieves the most recent N headers
func (r *HeaderRepository) GetRecent(limit int) ([]HeaderLog, error) {
	var headers []HeaderLog
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&headers).Error
	return headers, err
}

// DeleteOlderThan deletes headers logged before the specified time
func (r *HeaderRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", before).Delete(&HeaderLog{})
	return result.RowsAffected, result.Error
}
