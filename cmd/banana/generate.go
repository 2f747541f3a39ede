package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"nano-banana-studio/internal/app"
	"nano-banana-studio/internal/config"
	"nano-banana-studio/internal/download"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/prompt"
)

func newGenerateCmd() *cobra.Command {
	var (
		flags  selectionFlags
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the ad image and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.DownloadDir = outDir
			}

			a := app.New(cfg, app.NewLogger(cfg))
			return runGenerate(cmd.Context(), a, flags.selection(), cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to save the image (default DOWNLOAD_DIR)")
	return cmd
}

func runGenerate(ctx context.Context, a *app.App, sel prompt.Selection, out io.Writer) error {
	text := prompt.ResolvePrompt(sel)
	if text == "" {
		return errIncompleteSelection
	}

	sink := notify.Func(func(_ context.Context, n notify.Notification) {
		fmt.Fprintf(out, "%s: %s\n", n.Title, n.Description)
	})

	ctrl := a.NewController(sink)
	if _, err := ctrl.Generate(ctx, text); err != nil {
		return err
	}
	fmt.Fprintln(out, "Generating your AI image…")

	st, err := ctrl.Wait(ctx)
	if err != nil {
		ctrl.Cancel()
		return err
	}
	if st.Status != imagegen.StatusReady || st.Image == nil {
		return errors.New("image generation failed: " + st.Error)
	}

	opener := download.OpenerFunc(func(_ context.Context, rawURL string) error {
		if len(rawURL) > 200 {
			rawURL = rawURL[:200] + "…"
		}
		_, err := fmt.Fprintln(out, "Image URL:", rawURL)
		return err
	})

	res, err := a.Downloads.Download(ctx, st.Image.URL, sel.ProductName, download.Target{
		Saver:    download.NewDirSaver(a.Config.DownloadDir),
		Opener:   opener,
		Notifier: sink,
	})
	if err != nil {
		return err
	}
	if res.SavedTo != "" {
		fmt.Fprintln(out, "Saved to", res.SavedTo)
	}
	return nil
}
