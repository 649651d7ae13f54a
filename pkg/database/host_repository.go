package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HostRepository handles reflector and repeater host entries
type HostRepository struct {
	db *gorm.DB
}

// NewHostRepository creates a new host repository
func NewHostRepository(db *gorm.DB) *HostRepository {
	return &HostRepository{db: db}
}

// Upsert creates or updates a host entry
func (r *HostRepository) Upsert(h *HostEntry) error {
	return r.db.Save(h).Error
}

// UpsertBatch upserts host entries in a transaction. Locked entries are
// left as they are.
func (r *HostRepository) UpsertBatch(hosts []HostEntry, batchSize int) error {
	if len(hosts) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var locked []string
		if err := tx.Model(&HostEntry{}).Where("locked = ?", true).Pluck("callsign", &locked).Error; err != nil {
			return err
		}
		skip := make(map[string]bool, len(locked))
		for _, cs := range locked {
			skip[cs] = true
		}

		batch := make([]HostEntry, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&batch).Error
			batch = batch[:0]
			return err
		}

		for _, h := range hosts {
			if skip[h.Callsign] {
				continue
			}
			batch = append(batch, h)
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
}

// GetByCallsign retrieves a host entry. A missing entry returns nil and no
// error.
func (r *HostRepository) GetByCallsign(callsign string) (*HostEntry, error) {
	var h HostEntry
	err := r.db.Where("callsign = ?", callsign).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// All returns every host entry
func (r *HostRepository) All() ([]HostEntry, error) {
	var hosts []HostEntry
	err := r.db.Order("callsign").Find(&hosts).Error
	return hosts, err
}

// Count returns the number of host entries for a protocol, or all entries
// when protocol is empty
func (r *HostRepository) Count(protocol string) (int64, error) {
	var count int64
	q := r.db.Model(&HostEntry{})
	if protocol != "" {
		q = q.Where("protocol = ?", protocol)
	}
	err := q.Count(&count).Error
	return count, err
}

// DeleteUnlocked removes every downloaded entry of a protocol
func (r *HostRepository) DeleteUnlocked(protocol string) (int64, error) {
	result := r.db.Where("protocol = ? AND locked = ?", protocol, false).Delete(&HostEntry{})
	return result.RowsAffected, result.Error
}

// UserRouteRepository handles user locations learned from the directory
type UserRouteRepository struct {
	db *gorm.DB
}

// NewUserRouteRepository creates a new user route repository
func NewUserRouteRepository(db *gorm.DB) *UserRouteRepository {
	return &UserRouteRepository{db: db}
}

// Upsert creates or updates a user route
func (r *UserRouteRepository) Upsert(u *UserRoute) error {
	return r.db.Save(u).Error
}

// GetByUser retrieves the route of a user. A missing route returns nil and
// no error.
func (r *UserRouteRepository) GetByUser(user string) (*UserRoute, error) {
	var u UserRoute
	err := r.db.Where("callsign = ?", user).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// All returns every user route
func (r *UserRouteRepository) All() ([]UserRoute, error) {
	var routes []UserRoute
	err := r.db.Find(&routes).Error
	return routes, err
}
