// Package report renders printable invoice documents.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/billfold-app/billfold/internal/clients"
	"github.com/billfold-app/billfold/internal/invoices"
	"github.com/billfold-app/billfold/internal/quotes"
	"github.com/billfold-app/billfold/internal/workflow"
)

// CompanyInfo identifies the issuing company on the document.
type CompanyInfo struct {
	Name    string
	Address string
}

// Line is one rendered invoice line.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// TaxLine is one rendered tax row.
type TaxLine struct {
	Name    string
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// Document carries everything printed on an invoice PDF.
type Document struct {
	Number         string
	Company        CompanyInfo
	ClientName     string
	ClientAddress  string
	Currency       string
	Status         workflow.State
	IssuedAt       time.Time
	DueAt          time.Time
	Lines          []Line
	Taxes          []TaxLine
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	Payments       []invoices.Payment
}

// Renderer builds invoice PDFs. It loads the client record and the
// originating quote's line items, then lays out the document with
// gofpdf.
type Renderer struct {
	clientRepo clients.Repository
	quoteRepo  quotes.Repository
	company    CompanyInfo
}

// NewRenderer constructs a Renderer.
func NewRenderer(clientRepo clients.Repository, quoteRepo quotes.Repository, company CompanyInfo) *Renderer {
	return &Renderer{clientRepo: clientRepo, quoteRepo: quoteRepo, company: company}
}

// Invoice assembles and renders the document for one invoice.
func (r *Renderer) Invoice(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	client, err := r.clientRepo.Get(ctx, inv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	quote, err := r.quoteRepo.Get(ctx, inv.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("load quote: %w", err)
	}

	doc := Document{
		Number:         inv.Number,
		Company:        r.company,
		ClientName:     client.Name,
		ClientAddress:  client.BillingAddress,
		Currency:       inv.Currency,
		Status:         inv.Status,
		IssuedAt:       inv.IssuedAt,
		DueAt:          inv.DueAt,
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		Shipping:       inv.Shipping,
		Total:          inv.Total,
		AmountPaid:     inv.AmountPaid,
		Payments:       inv.Payments,
	}
	for _, item := range quote.Items {
		doc.Lines = append(doc.Lines, Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.LineSubtotal,
		})
	}
	for _, tax := range quote.Taxes {
		doc.Taxes = append(doc.Taxes, TaxLine{Name: tax.Name, Percent: tax.Percent, Amount: tax.Amount})
	}

	return r.Render(doc)
}

// Render lays out a Document as an A4 PDF.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetMargins(10, 10, 10)

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(130, 10, "INVOICE")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(60, 10, doc.Number, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, doc.Company.Name)
	pdf.CellFormat(95, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	y := pdf.GetY()
	pdf.MultiCell(90, 5, doc.Company.Address, "", "L", false)
	pdf.SetXY(105, y)
	pdf.MultiCell(90, 5, doc.ClientName+"\n"+doc.ClientAddress, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(65, 6, "Issued: "+doc.IssuedAt.Format("02 Jan 2006"))
	pdf.Cell(65, 6, "Due: "+doc.DueAt.Format("02 Jan 2006"))
	pdf.CellFormat(60, 6, "Status: "+string(doc.Status), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Lines {
		pdf.CellFormat(90, 7, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, line.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, money(line.UnitPrice, doc.Currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, money(line.Subtotal, doc.Currency), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	totalRow := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(150, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(amount, doc.Currency), "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", doc.Subtotal, false)
	if doc.DiscountAmount.IsPositive() {
		totalRow("Discount", doc.DiscountAmount.Neg(), false)
	}
	for _, tax := range doc.Taxes {
		totalRow(fmt.Sprintf("%s (%s%%)", tax.Name, tax.Percent.String()), tax.Amount, false)
	}
	if doc.Shipping.IsPositive() {
		totalRow("Shipping", doc.Shipping, false)
	}
	totalRow("Total", doc.Total, true)
	if doc.AmountPaid.IsPositive() {
		totalRow("Paid", doc.AmountPaid.Neg(), false)
		totalRow("Balance Due", doc.Total.Sub(doc.AmountPaid), true)
	}

	if len(doc.Payments) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(190, 6, "Payments", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, p := range doc.Payments {
			pdf.CellFormat(50, 5, p.PaidAt.Format("02 Jan 2006"), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 5, p.Method, "", 0, "L", false, 0, "")
			pdf.CellFormat(100, 5, money(p.Amount, doc.Currency), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render invoice %s: %w", doc.Number, err)
	}
	return buf.Bytes(), nil
}

func money(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}
