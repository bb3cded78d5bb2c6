package domain

import "time"

// RuleStatus represents whether a business rule may authorize documents.
// Values include RuleStatusActive and RuleStatusInactive.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// BusinessRule authorizes one (source, destination, product) triple.
// Rules are read-only to the pipeline; they are maintained through an
// external registry surface.
type BusinessRule struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Source      string     `gorm:"type:text;not null;index:idx_rules_route" json:"source"`
	Destination string     `gorm:"type:text;not null;index:idx_rules_route" json:"destination"`
	Product     string     `gorm:"type:text;not null;index:idx_rules_route" json:"product"`
	Status      RuleStatus `gorm:"type:text;default:active" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BusinessRule.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BusinessRule) TableName() string {
	return "business_rules"
}
