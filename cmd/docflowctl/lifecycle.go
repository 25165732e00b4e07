package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

var (
	deliveryMethods = []entity.DeliveryMethod{
		entity.MethodDelivery,
		entity.MethodDoorToDoor,
		entity.MethodD2DStocks,
		entity.MethodSample,
	}
	paymentMethods = []entity.PaymentMethod{
		entity.PaymentCash,
		entity.PaymentDays15,
		entity.PaymentDays30,
		entity.PaymentDays60,
		entity.PaymentDays90,
		entity.PaymentDays120,
	}
)

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Print the stage sequence of every document classification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeLifecycles(cmd.OutOrStdout())
	},
}

func writeLifecycles(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tDELIVERY\tPAYMENT\tSTAGES")

	// Rows with the same stages collapse, so all payment terms share one line
	seen := make(map[string]bool)
	for _, dm := range deliveryMethods {
		for _, pm := range paymentMethods {
			stages, err := domainwf.ResolveDelivery(entity.DeliveryClassification{DeliveryMethod: dm, PaymentMethod: pm})
			if err != nil {
				return err
			}
			line := joinStages(stages)
			if seen[string(dm)+line] {
				continue
			}
			seen[string(dm)+line] = true

			payment := string(pm)
			switch {
			case dm == entity.MethodD2DStocks || dm == entity.MethodSample:
				payment = "*"
			case pm.IsTerms():
				payment = "TERMS"
			}
			fmt.Fprintf(w, "DR\t%s\t%s\t%s\n", dm, payment, line)
		}
	}
	fmt.Fprintf(w, "PO\t-\t-\t%s\n", joinStages(domainwf.ResolvePurchase()))
	return w.Flush()
}

func joinStages(stages []domainwf.Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, " > ")
}
