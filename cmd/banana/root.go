package main

import (
	"strings"

	"github.com/spf13/cobra"

	"nano-banana-studio/internal/prompt"
)

type selectionFlags struct {
	adType   string
	industry string
	tone     string
	product  string
	custom   string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.adType, "ad-type", "a", "", "ad format key (see banana options)")
	cmd.Flags().StringVarP(&f.industry, "industry", "i", "", "industry key")
	cmd.Flags().StringVarP(&f.tone, "tone", "t", "", "tone & style key")
	cmd.Flags().StringVarP(&f.product, "product", "p", prompt.DefaultProductName, "product or brand name")
	cmd.Flags().StringVarP(&f.custom, "custom", "c", "", "custom prompt; overrides the composed one")
}

func (f *selectionFlags) selection() prompt.Selection {
	return prompt.Selection{
		AdType:       strings.TrimSpace(f.adType),
		Industry:     strings.TrimSpace(f.industry),
		ProductName:  f.product,
		ToneStyle:    strings.TrimSpace(f.tone),
		CustomPrompt: f.custom,
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "banana",
		Short:        "Nano Banana ad prompt and image generator",
		SilenceUsage: true,
	}

	root.AddCommand(newOptionsCmd(), newPromptCmd(), newGenerateCmd())
	return root
}
