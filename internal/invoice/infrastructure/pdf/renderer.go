package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/dmehra2102/order-fulfillment/internal/invoice/application"
)

type Renderer struct {
	seller string
}

func NewRenderer(seller string) *Renderer {
	return &Renderer{seller: seller}
}

func (r *Renderer) Render(doc application.Document) ([]byte, error) {
	inv := doc.Invoice
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(inv.DisplayNumber(), true)
	p.SetCreator(r.seller, true)
	p.SetCreationDate(inv.CreatedAt)
	p.AddPage()

	p.SetFont("Helvetica", "B", 16)
	p.CellFormat(0, 10, "Invoice "+inv.DisplayNumber(), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(0, 6, r.seller, "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, "Date: "+inv.CreatedAt.Format("02 Jan 2006"), "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, "Order: "+inv.OrderID, "", 1, "L", false, 0, "")
	p.Ln(4)

	c := doc.Customer
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(0, 6, "Bill to", "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	for _, line := range []string{c.Name, c.Address, c.Phone, c.Email} {
		if line != "" {
			p.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	p.Ln(4)

	widths := []float64{80, 25, 20, 25, 30}
	p.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Product", "Unit price", "Qty", "Offer %", "Amount"} {
		p.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	p.Ln(-1)

	p.SetFont("Helvetica", "", 10)
	if doc.Order != nil {
		for _, it := range doc.Order.Items {
			name := it.ProductName
			if name == "" {
				name = it.ProductID
			}
			p.CellFormat(widths[0], 7, name, "1", 0, "L", false, 0, "")
			p.CellFormat(widths[1], 7, it.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
			p.CellFormat(widths[2], 7, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
			p.CellFormat(widths[3], 7, it.DiscountPct.String(), "1", 0, "R", false, 0, "")
			p.CellFormat(widths[4], 7, it.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
			p.Ln(-1)
		}
	}

	p.SetFont("Helvetica", "B", 10)
	p.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total ("+doc.Currency+")", "1", 0, "R", false, 0, "")
	p.CellFormat(widths[4], 8, inv.Amount.StringFixed(2), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render %s: %w", inv.DisplayNumber(), err)
	}
	return buf.Bytes(), nil
}
