package service

import (
	"fmt"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

// ResolvePrice returns the fee for a document type. The barangay's own
// table wins; missing entries (or a missing table) fall back to the system
// defaults. The result is snapshotted onto the request at creation time,
// so later pricing changes never affect open requests.
func ResolvePrice(table models.PricingTable, docType models.DocumentType) (float64, error) {
	if !docType.Valid() {
		return 0, appErrors.Clone(appErrors.ErrInvalidDocumentType, fmt.Sprintf("unknown document type: %s", docType))
	}
	if table != nil {
		if amount, ok := table[docType]; ok {
			return amount, nil
		}
	}
	return models.DefaultPricing[docType], nil
}
