package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func infoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <index|name>",
		Short: "Show the identity and topology of an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Deinit()

			e, err := resolve(m, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hw := e.HWInfo()

			fmt.Fprintf(out, "Name:        %s\n", e.Name())
			fmt.Fprintf(out, "Device:      hw:%d,%d\n", e.CardID(), e.ID())
			fmt.Fprintf(out, "Direction:   %s\n", hw.Direction)
			fmt.Fprintf(out, "Interface:   %s\n", hw.Interface)
			fmt.Fprintf(out, "Index:       %d\n", hw.Index)
			fmt.Fprintf(out, "State:       %s\n", e.State())

			keys := make([]string, 0, len(hw.Attributes))
			for k := range hw.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(out, "  %s = %s\n", k, hw.Attributes[k])
			}

			return nil
		},
	}
}
