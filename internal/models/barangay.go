package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PricingTable maps document types to their fee. Stored as JSONB.
type PricingTable map[DocumentType]float64

// Value implements driver.Valuer.
func (t PricingTable) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *PricingTable) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported pricing table type %T", src)
	}
}

// DefaultPricing is the system fallback fee table applied when a barangay
// has not configured its own prices (or omits a document type).
var DefaultPricing = PricingTable{
	DocBarangayClearance: 50.00,
	DocResidency:         75.00,
	DocIndigency:         0.00,
	DocBusinessPermit:    250.00,
	DocGoodMoral:         100.00,
	DocSoloParent:        0.00,
}

// Barangay is one administrative unit (tenant). Barangays are never hard
// deleted while requests reference them; deactivation flips Active only.
type Barangay struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Address      string       `db:"address" json:"address"`
	Municipality string       `db:"municipality" json:"municipality"`
	Province     string       `db:"province" json:"province"`
	Active       bool         `db:"active" json:"active"`
	Pricing      PricingTable `db:"pricing" json:"pricing,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}
