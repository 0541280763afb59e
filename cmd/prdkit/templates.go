package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"prdkit/pkg/prompts"
)

func newTemplatesCmd() *cobra.Command {
	var argPairs []string
	cmd := &cobra.Command{
		Use:   "templates [intent]",
		Short: "List prompt templates, or render one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, in := range prompts.Intents() {
					line := headerStyle.Render(in.Name)
					if len(in.Args) > 0 {
						line += " " + accentStyle.Render(strings.Join(in.Args, ", "))
					}
					if len(in.Optional) > 0 {
						line += " " + mutedStyle.Render("["+strings.Join(in.Optional, ", ")+"]")
					}
					fmt.Fprintln(out, line)
				}
				return nil
			}
			tplArgs, err := parseArgs(argPairs)
			if err != nil {
				return err
			}
			tpl, err := prompts.Build(args[0], tplArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, headerStyle.Render("system"))
			fmt.Fprintln(out, tpl.System)
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("user"))
			fmt.Fprintln(out, tpl.User)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&argPairs, "arg", nil, "Template argument as key=value (repeatable)")
	return cmd
}
