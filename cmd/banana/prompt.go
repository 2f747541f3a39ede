package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nano-banana-studio/internal/prompt"
)

var errIncompleteSelection = errors.New("choose --ad-type, --industry and --tone, or pass --custom")

func newPromptCmd() *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the composed ad prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := prompt.ResolvePrompt(flags.selection())
			if text == "" {
				return errIncompleteSelection
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
