package domain

import "time"

// RoutingConfig describes where documents for a destination are forwarded
// and which credential unlocks that endpoint. Read-only to the pipeline.
type RoutingConfig struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	Destination   string    `gorm:"type:text;not null;index:idx_routing_destination" json:"destination"`
	CredentialRef string    `gorm:"type:text;not null" json:"credential_ref"`
	EndpointURL   string    `gorm:"type:text;not null" json:"endpoint_url"`
	Active        bool      `gorm:"default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for RoutingConfig.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (RoutingConfig) TableName() string {
	return "routing_configs"
}
