package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var numberCmd = &cobra.Command{
	Use:   "number <scope>",
	Short: "Allocate the next identifier in a numbering scope",
	Long: `Allocate and print the next identifier in a numbering scope.

Scopes: dr, rfp, po, billing, counter. The allocation is permanent; the
number will not be handed out again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := startContainer(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		gen := c.Numbers()
		scope, err := gen.ScopeByName(args[0])
		if err != nil {
			return err
		}
		next, err := gen.Next(ctx, scope)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), next)
		return nil
	},
}
