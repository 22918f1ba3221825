package agency

import "gorm.io/gorm"

// ForAgency returns a GORM scope that filters by agency_id.
func ForAgency(agencyID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("agency_id = ?", agencyID)
	}
}
