package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// SettlementReceipt renders a PDF receipt for one settlement event and
// streams it. A copy is archived to the object store when one is configured.
func (h *Handler) SettlementReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", "Settlement id must be numeric")
		return
	}

	snap := h.Feed.Snapshot()
	var event *models.SettlementEvent
	for i := range snap.Settlements {
		if snap.Settlements[i].ID == id {
			event = &snap.Settlements[i]
			break
		}
	}
	if event == nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Settlement not found")
		return
	}

	data := receiptData(snap, *event)
	pdf, err := renderSettlementReceipt(data)
	if err != nil {
		h.Logger.Error("receipt render failed", zap.Int64("settlementId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to render receipt")
		return
	}

	if h.Receipts != nil {
		go h.archiveReceipt(id, pdf.Bytes())
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=settlement-%d.pdf", id))
	_, _ = w.Write(pdf.Bytes())
}

func (h *Handler) archiveReceipt(id int64, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := fmt.Sprintf("receipts/settlement-%d.pdf", id)
	if err := h.Receipts.PutObject(ctx, key, body, "application/pdf"); err != nil {
		h.Logger.Warn("receipt archive failed", zap.Int64("settlementId", id), zap.Error(err))
	}
}

type settlementReceiptData struct {
	SettlementID int64
	PayeeKind    string
	PayeeName    string
	PayeeUPI     string
	Amount       float64
	Status       string
	SettledAt    string
}

func receiptData(snap models.Snapshot, event models.SettlementEvent) settlementReceiptData {
	data := settlementReceiptData{
		SettlementID: event.ID,
		Amount:       event.Amount,
		Status:       string(event.Status),
		SettledAt:    time.UnixMilli(event.Timestamp).Format("2006-01-02 15:04:05"),
	}

	switch {
	case event.RestaurantID != nil:
		data.PayeeKind = "Restaurant"
		data.PayeeName = *event.RestaurantID
		if r := snap.RestaurantByID(*event.RestaurantID); r != nil {
			data.PayeeName = r.Name
			if r.UPIID != nil {
				data.PayeeUPI = *r.UPIID
			}
		}
	case event.PartnerID != nil:
		data.PayeeKind = "Delivery Partner"
		data.PayeeName = *event.PartnerID
		if p := snap.PartnerByID(*event.PartnerID); p != nil {
			data.PayeeName = p.Name
			if p.UPIID != nil {
				data.PayeeUPI = *p.UPIID
			}
		}
	}
	return data
}

func renderSettlementReceipt(data settlementReceiptData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Settlement Receipt", "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Receipt #%d", data.SettlementID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Settled: %s", data.SettledAt), "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Payee", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s", data.PayeeKind, data.PayeeName), "", 1, "L", false, 0, "")
	if data.PayeeUPI != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("UPI: %s", data.PayeeUPI), "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Payment", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Amount: %.2f", data.Amount), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", data.Status), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
