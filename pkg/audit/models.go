// Package audit records management actions against the registry HTTP API.
// Every mutating request leaves an immutable access event with the actor,
// the touched resources and the outcome. The per-version status history is
// kept separately by the registry stores; this trail answers "who did what
// through the API and when".
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONAny is a custom GORM type for map[string]any stored as JSON.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AccessEventRecord is an immutable access audit entry.
type AccessEventRecord struct {
	ID            string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Site          string          `gorm:"column:site;index:idx_access_site_time,priority:1;default:default;not null"`
	CorrelationID string          `gorm:"column:correlation_id;index"`
	Actor         string          `gorm:"column:actor;index:idx_access_actor_time,priority:1;not null"`
	Role          string          `gorm:"column:role"`
	AssetID       string          `gorm:"column:asset_id;index:idx_access_asset_time,priority:1"`
	VersionID     string          `gorm:"column:version_id"`
	BranchID      string          `gorm:"column:branch_id"`
	ResourceType  string          `gorm:"column:resource_type"`
	ResourceIDs   JSONStringSlice `gorm:"column:resource_ids;type:text"`
	Action        string          `gorm:"column:action;index:idx_access_action_time,priority:1"`
	Outcome       string          `gorm:"column:outcome;not null"` // success, failure, denied
	StatusCode    int             `gorm:"column:status_code"`
	RequestID     string          `gorm:"column:request_id;index"`
	EventMetadata JSONAny         `gorm:"column:metadata;type:text"`
	CreatedAt     time.Time       `gorm:"column:created_at;index:idx_access_site_time,priority:2;index:idx_access_actor_time,priority:2;index:idx_access_asset_time,priority:2;index:idx_access_action_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (AccessEventRecord) TableName() string { return "access_audit_events" }
