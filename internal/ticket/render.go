package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Data is everything printed on a ticket. All fields come from immutable
// reservation, event and profile data, so rendering the same Data twice
// yields the same document.
type Data struct {
	ReservationID string
	BadgeID       string
	Signature     string
	VerifyURL     string
	EventTitle    string
	EventStartsAt time.Time
	EventLocation string
	FirstName     string
	LastName      string
	Photo         []byte
	PhotoType     string // "png" or "jpg"
	IssuedAt      time.Time
}

// Renderer turns ticket data into a document.
type Renderer interface {
	Render(d Data) ([]byte, error)
}

// PDFRenderer renders A5 portrait PDF tickets with an embedded QR code.
type PDFRenderer struct {
	Brand string
}

// NewPDFRenderer returns a PDFRenderer printing brand in the header.
func NewPDFRenderer(brand string) *PDFRenderer {
	if brand == "" {
		brand = "EVENT TICKET"
	}
	return &PDFRenderer{Brand: brand}
}

// Render builds the PDF. Creation date is pinned to d.IssuedAt.
func (r *PDFRenderer) Render(d Data) ([]byte, error) {
	qr, err := qrcode.Encode(d.VerifyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetCreationDate(d.IssuedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(d.EventTitle, true)
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// --- Header ---
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(r.Brand), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(12, pdf.GetY()+1, 136, pdf.GetY()+1)
	pdf.Ln(5)

	// --- Participant ---
	yStart := pdf.GetY()
	if len(d.Photo) > 0 {
		imgType := d.PhotoType
		if imgType == "" {
			imgType = "png"
		}
		opts := gofpdf.ImageOptions{ImageType: imgType}
		pdf.RegisterImageOptionsReader("photo", opts, bytes.NewReader(d.Photo))
		pdf.ImageOptions("photo", 12, yStart, 30, 0, false, opts, 0, "")
	}
	pdf.SetXY(48, yStart)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(d.FirstName+" "+d.LastName), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Badge: "+d.BadgeID, "", 2, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Reservation: "+d.ReservationID, "", 2, "L", false, 0, "")
	pdf.SetY(yStart + 42)

	// --- Event ---
	drawSectionTitle(pdf, "EVENT")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(d.EventTitle), "", "L", false)
	if !d.EventStartsAt.IsZero() {
		pdf.CellFormat(0, 6, "Date: "+d.EventStartsAt.UTC().Format("Mon 02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	}
	if d.EventLocation != "" {
		pdf.MultiCell(0, 6, tr("Location: "+d.EventLocation), "", "L", false)
	}
	pdf.Ln(4)

	// --- QR ---
	qrOpts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("qr", qrOpts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 44, pdf.GetY(), 60, 60, false, qrOpts, 0, "")
	pdf.SetY(pdf.GetY() + 62)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Scan this code at the entrance.", "", 1, "C", false, 0, "")

	// --- Footer ---
	pdf.SetY(196)
	pdf.SetFont("Courier", "", 6)
	pdf.CellFormat(0, 4, d.Signature, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(2)
}
