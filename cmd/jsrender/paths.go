package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPathsCmd(a *app) *cobra.Command {
	var hidden bool
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List the javascript files the js() helper links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := buildModule(a.v, a.log)
			if err != nil {
				return err
			}
			paths, err := m.Paths(hidden)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include files starting with an underscore")
	return cmd
}

func newCombinedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "combined",
		Short: "Print the combined javascript file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := buildModule(a.v, a.log)
			if err != nil {
				return err
			}
			js, err := m.RenderCombined(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), js)
			return err
		},
	}
}
