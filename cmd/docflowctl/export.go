package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/export"
)

var (
	exportOut             string
	exportIncludeArchived bool
	exportMethod          string
	exportSkipHistory     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the delivery register to an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := port.DeliveryFilter{IncludeArchived: exportIncludeArchived}
		if exportMethod != "" {
			method := entity.DeliveryMethod(exportMethod)
			if !method.IsValid() {
				return fmt.Errorf("unknown delivery method %q", exportMethod)
			}
			filter.DeliveryMethod = method
		}

		ctx := cmd.Context()
		c, err := startContainer(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		var history export.HistoryReader
		if !exportSkipHistory {
			history = c.Services().History
		}
		exporter := export.NewRegisterExporter(c.Services().Delivery, history, logger)

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		if err := exporter.Write(ctx, f, filter); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", exportOut, err)
		}

		logger.Info("Exported delivery register", zap.String("path", exportOut))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "deliveries.xlsx", "output file")
	exportCmd.Flags().BoolVar(&exportIncludeArchived, "include-archived", false, "include archived and cancelled receipts")
	exportCmd.Flags().StringVar(&exportMethod, "delivery-method", "", "only export receipts with this delivery method")
	exportCmd.Flags().BoolVar(&exportSkipHistory, "no-history", false, "skip the audit sheet")
}
