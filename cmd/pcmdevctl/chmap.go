package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func chmapCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "chmap <index|name>",
		Short: "Read the channel map control of an endpoint",
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

			chmap, err := e.ChannelMap()
			if err != nil {
				return err
			}

			// Trailing zero positions are unused unless asked for.
			n := len(chmap)
			for !all && n > 0 && chmap[n-1] == 0 {
				n--
			}

			positions := make([]string, n)
			for i, pos := range chmap[:n] {
				positions[i] = fmt.Sprint(pos)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: [%s]\n", e.Name(), strings.Join(positions, " "))

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Print all positions including unused ones")

	return cmd
}
