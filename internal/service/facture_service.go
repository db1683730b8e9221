package service

import (
	"bytes"
	"fmt"
	"time"

	"inventaire-service/internal/util"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Quebec sales tax rates.
var (
	tauxTPS = decimal.RequireFromString("0.05")
	tauxTVQ = decimal.RequireFromString("0.09975")
)

// FactureService renders invoice PDFs.
type FactureService struct{}

// NewFactureService creates a new invoice service.
func NewFactureService() *FactureService { return &FactureService{} }

// FactureItem is one billed line.
type FactureItem struct {
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// FactureRequest carries the payload of POST /api/invoice. Every part is
// optional; missing parts fall back to demo defaults.
type FactureRequest struct {
	Invoice  *FactureHeader `json:"invoice"`
	Seller   *FactureParty  `json:"seller"`
	Customer *FactureParty  `json:"customer"`
	Items    []FactureItem  `json:"items"`
}

type FactureHeader struct {
	Number string `json:"number"`
	Date   string `json:"date"`
}

type FactureParty struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// FactureTotals are the computed tax lines of an invoice.
type FactureTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TPS      decimal.Decimal `json:"tps"`
	TVQ      decimal.Decimal `json:"tvq"`
	Total    decimal.Decimal `json:"total"`
}

// CalcTaxes computes subtotal, TPS (5%), TVQ (9.975%) and the grand
// total, each rounded to the cent.
func CalcTaxes(items []FactureItem) FactureTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	subtotal = subtotal.Round(2)
	tps := subtotal.Mul(tauxTPS).Round(2)
	tvq := subtotal.Mul(tauxTVQ).Round(2)

	return FactureTotals{
		Subtotal: subtotal,
		TPS:      tps,
		TVQ:      tvq,
		Total:    subtotal.Add(tps).Add(tvq).Round(2),
	}
}

func (r *FactureRequest) applyDefaults() {
	if r.Invoice == nil {
		r.Invoice = &FactureHeader{}
	}
	if r.Invoice.Number == "" {
		r.Invoice.Number = "2025-0001"
	}
	if r.Invoice.Date == "" {
		r.Invoice.Date = time.Now().Format("2006-01-02")
	}
	if r.Seller == nil {
		r.Seller = &FactureParty{Name: "Gestion Inventaire", Address: "123 Rue X, Laval, QC"}
	}
	if r.Customer == nil {
		r.Customer = &FactureParty{Name: "Client", Address: ""}
	}
	if len(r.Items) == 0 {
		r.Items = []FactureItem{
			{Description: "Article", Qty: 1, UnitPrice: decimal.RequireFromString("0.00")},
		}
	}
}

// GenerateFacture renders the invoice as an A4 PDF.
func (s *FactureService) GenerateFacture(req *FactureRequest) ([]byte, error) {
	req.applyDefaults()
	totals := CalcTaxes(req.Items)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 16, 14)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "FACTURE")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("No: %s | Date: %s", req.Invoice.Number, req.Invoice.Date))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, tr("Vendeur :"))
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, tr(req.Seller.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(req.Seller.Address))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, tr("Client :"))
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, tr(req.Customer.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(req.Customer.Address))
	pdf.Ln(10)

	colWidths := []float64{92, 24, 30, 36}
	headers := []string{"Article", tr("Qté"), "Prix", "Total"}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(244, 244, 244)
	for i, h := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(colWidths[i], 8, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range req.Items {
		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))).Round(2)
		pdf.CellFormat(colWidths[0], 7, tr(it.Description), "B", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, fmt.Sprintf("%d", it.Qty), "B", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, it.UnitPrice.StringFixed(2)+" $", "B", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, lineTotal.StringFixed(2)+" $", "B", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	totalLine := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(146, 6, "", "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s %s $", label, amount.StringFixed(2))), "", 1, "R", false, 0, "")
	}
	totalLine("Sous-total :", totals.Subtotal, false)
	totalLine("TPS (5%) :", totals.TPS, false)
	totalLine("TVQ (9,975%) :", totals.TVQ, false)
	totalLine("Total :", totals.Total, true)

	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, "Merci pour votre achat!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render facture: %w", err)
	}

	util.FacturesGeneratedTotal.Inc()
	return buf.Bytes(), nil
}
