// Package export renders document registers as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// Sheet names of the delivery register workbook
const (
	RegisterSheet = "Register"
	AuditSheet    = "Audit"
)

const dateLayout = "2006-01-02"

var registerHeader = []interface{}{
	"DR Number", "Client", "Delivery Method", "Payment Method", "Stage",
	"Delivery Status", "Payment Status", "Approval", "Total",
	"Date of Order", "Date of Delivery", "Payment Due",
	"Archived", "Cancelled", "Created By", "Created At",
}

var auditHeader = []interface{}{
	"DR Number", "Timestamp", "Role", "Actor", "Message", "Note",
}

// DeliveryLister reads delivery receipts
type DeliveryLister interface {
	List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error)
}

// HistoryReader reads the raw audit entries of a document, newest first
type HistoryReader interface {
	Entries(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error)
}

// RegisterExporter writes the delivery register and its audit history to xlsx
type RegisterExporter struct {
	deliveries DeliveryLister
	history    HistoryReader
	logger     *zap.Logger
}

// NewRegisterExporter creates an exporter. history may be nil to skip the audit sheet.
func NewRegisterExporter(deliveries DeliveryLister, history HistoryReader, logger *zap.Logger) *RegisterExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterExporter{
		deliveries: deliveries,
		history:    history,
		logger:     logger,
	}
}

// Write builds the workbook for the receipts matching filter and writes it to w
func (e *RegisterExporter) Write(ctx context.Context, w io.Writer, filter port.DeliveryFilter) error {
	receipts, err := e.deliveries.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list delivery receipts: %w", err)
	}

	f, err := e.Build(ctx, receipts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Delivery register exported", zap.Int("receipts", len(receipts)))
	return nil
}

// Build lays the receipts out in a new workbook. The caller closes the file.
func (e *RegisterExporter) Build(ctx context.Context, receipts []*entity.DeliveryReceipt) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", RegisterSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name register sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRows(f, RegisterSheet, headerStyle, registerHeader, registerRows(receipts)); err != nil {
		_ = f.Close()
		return nil, err
	}

	if e.history != nil {
		if _, err := f.NewSheet(AuditSheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create audit sheet: %w", err)
		}
		rows, err := e.auditRows(ctx, receipts)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := writeRows(f, AuditSheet, headerStyle, auditHeader, rows); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return f, nil
}

func registerRows(receipts []*entity.DeliveryReceipt) [][]interface{} {
	rows := make([][]interface{}, 0, len(receipts))
	for _, dr := range receipts {
		rows = append(rows, []interface{}{
			dr.DRNumber,
			dr.Client,
			string(dr.DeliveryMethod),
			string(dr.PaymentMethod),
			string(domainwf.DeriveDeliveryStage(dr)),
			dr.DeliveryStatus,
			dr.PaymentStatus,
			string(dr.ApprovalStatus),
			dr.TotalAmount.StringFixed(2),
			formatDate(dr.DateOfOrder),
			formatDate(dr.DateOfDelivery),
			formatDate(dr.PaymentDue),
			dr.Archived,
			dr.Cancelled,
			dr.CreatedBy,
			dr.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// auditRows lists each receipt's history oldest first so the sheet reads chronologically
func (e *RegisterExporter) auditRows(ctx context.Context, receipts []*entity.DeliveryReceipt) ([][]interface{}, error) {
	var rows [][]interface{}
	for _, dr := range receipts {
		entries, err := e.history.Entries(ctx, entity.DocumentDelivery, dr.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read history of %s: %w", dr.DRNumber, err)
		}
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			rows = append(rows, []interface{}{
				dr.DRNumber,
				entry.Timestamp.UTC().Format(time.RFC3339),
				entry.ActorRole,
				entry.ActorID,
				entry.SystemMessage,
				entry.UserNote,
			})
		}
	}
	return rows, nil
}

func writeRows(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
