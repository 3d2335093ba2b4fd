package dto

// CreateBarangayBody provisions a new barangay tenant.
type CreateBarangayBody struct {
	Name         string             `json:"name" validate:"required"`
	Address      string             `json:"address" validate:"required"`
	Municipality string             `json:"municipality" validate:"required"`
	Province     string             `json:"province" validate:"required"`
	Pricing      map[string]float64 `json:"pricing,omitempty"`
}

// UpdatePricingBody replaces a barangay's document fee table.
type UpdatePricingBody struct {
	Pricing map[string]float64 `json:"pricing" validate:"required"`
}

// SetActiveBody toggles the barangay's active flag.
type SetActiveBody struct {
	Active *bool `json:"active" validate:"required"`
}
