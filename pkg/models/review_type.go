package models

// Review type ids are stable reference data, seeded by migration.
const (
	ReviewType45Day = 1
	ReviewType90Day = 2
)

// ReviewType is a review variant keyed by tenure at scan time. MinTenureDays
// and MaxTenureDays bound the eligible window; DueOffsetDays already includes
// the grace period applied on top of the nominal milestone.
type ReviewType struct {
	ID            int    `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	MinTenureDays int    `db:"min_tenure_days" json:"min_tenure_days"`
	MaxTenureDays int    `db:"max_tenure_days" json:"max_tenure_days"`
	DueOffsetDays int    `db:"due_offset_days" json:"due_offset_days"`
}

// TableName returns the database table name
func (ReviewType) TableName() string {
	return "review_types"
}
