package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/brgy-docs-api/internal/models"
)

// ReceiptRenderer renders a receipt view into a printable A5 PDF.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

const dateLayout = "January 2, 2006"

// Render produces the PDF bytes for one receipt.
func (r *ReceiptRenderer) Render(receipt *models.ReceiptView) ([]byte, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is required")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, strings.ToUpper(receipt.BarangayName), "", 1, "C", false, 0, "")
	if receipt.BarangayAddress != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, receipt.BarangayAddress, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "OFFICIAL PAYMENT RECEIPT", "T", 1, "C", false, 0, "")
	pdf.Ln(3)

	rows := [][2]string{
		{"Receipt No.", receipt.ReceiptNumber},
		{"Tracking No.", receipt.TrackingNumber},
		{"Resident", receipt.ResidentName},
		{"Document", string(receipt.DocumentType)},
		{"Amount", fmt.Sprintf("PHP %.2f", receipt.Amount)},
		{"Payment Method", receipt.Method},
		{"Reference No.", receipt.ReferenceNumber},
	}
	if receipt.PaymentDate != nil {
		rows = append(rows, [2]string{"Payment Date", receipt.PaymentDate.Format(dateLayout)})
	}
	if receipt.VerifiedBy != "" {
		rows = append(rows, [2]string{"Verified By", receipt.VerifiedBy})
	}
	if receipt.Remarks != "" {
		rows = append(rows, [2]string{"Remarks", receipt.Remarks})
	}

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, row[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, row[1], "", 1, "", false, 0, "")
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Generated "+receipt.GeneratedAt.Format(dateLayout), "T", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "This receipt is system generated and valid without signature.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
