package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Deinit()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tDEVICE\tNAME\tDIRECTION\tINTERFACE")

			endpoints := m.Endpoints()
			for i, iface := range m.List(limit) {
				e := endpoints[i]
				fmt.Fprintf(w, "%d\thw:%d,%d\t%s\t%s\t%s\n", i, e.CardID(), e.ID(), iface.Name, iface.Direction, e.HWInfo().Interface)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "max", "n", 0, "List at most this many endpoints, 0 for all")

	return cmd
}
