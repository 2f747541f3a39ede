package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nano-banana-studio/internal/prompt"
)

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List ad types, industries and tones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printOptions(cmd.OutOrStdout())
		},
	}
}

func printOptions(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	sections := []struct {
		title   string
		options []prompt.NamedOption
	}{
		{"AD TYPES", prompt.AdTypes()},
		{"INDUSTRIES", prompt.Industries()},
		{"TONES", prompt.ToneStyles()},
	}

	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintln(tw, s.title)
		for _, opt := range s.options {
			name := opt.Name
			if opt.AspectRatio != "" {
				name += " (" + opt.AspectRatio + ")"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", opt.Key, name)
		}
	}
	return tw.Flush()
}
