package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"uploadsvc/internal/apiclient"
	"uploadsvc/internal/pacs"
)

var (
	uploadCase   string
	uploadLabels []string
	uploadViaAPI bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <folder>",
	Short: "Upload a folder of DICOM files to the PACS",
	Long: `Upload every *.dcm file below <folder> to the configured PACS.
Instances already in the PACS are skipped, each upload is confirmed and,
when everything succeeded, the study gets the given labels.

Progress is also posted to the UI log of a running API. With --via-api
the running API performs the upload in the background instead.`,
	Example: `  uploadsvc upload ~/Desktop/14-10-2026 --case 1234 --label urgent
  uploadsvc upload ./study --via-api`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		folder, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		req := pacs.Request{Folder: folder, Case: uploadCase, Labels: uploadLabels}
		apic := apiclient.New(cfg.API.BaseURL(), apiclient.DefaultTimeout)

		if uploadViaAPI {
			resp, err := apic.Upload(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("upload via API: %w", err)
			}
			if !resp.Started {
				reason := resp.Reason
				if reason == "" {
					reason = resp.Error
				}
				return fmt.Errorf("upload not started: %s", reason)
			}
			fmt.Printf("%s✓ Upload of %s started by the service API.%s\n", green, folder, reset)
			return nil
		}

		client, err := pacs.FromConfig(cfg.PACS, nil, apic.Notifier(pacs.Source))
		if err != nil {
			return err
		}
		u := pacs.NewUploader(client, apic.Notifier(pacs.Source), cfg.PACS.Include)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		res, err := u.UploadFolder(ctx, req)
		if err != nil {
			return err
		}

		fmt.Printf("\n%sUpload of %s%s\n", bold, folder, reset)
		fmt.Printf("  Files:    %d\n", res.Total)
		fmt.Printf("  Uploaded: %s%d%s\n", green, res.Uploaded, reset)
		fmt.Printf("  Skipped:  %s%d%s (already in PACS)\n", cyan, res.Skipped, reset)
		if res.Failed > 0 {
			fmt.Printf("  Failed:   %s%d%s\n", red, res.Failed, reset)
			for _, f := range res.Failures {
				fmt.Printf("    %s: %s\n", f.Path, f.Error)
			}
			return fmt.Errorf("%d file(s) failed", res.Failed)
		}
		if len(res.Labeled) > 0 {
			fmt.Printf("  Labels:   %v\n", res.Labeled)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadCase, "case", "", "case name shown in progress messages")
	uploadCmd.Flags().StringArrayVarP(&uploadLabels, "label", "l", nil, "study label to add after a complete upload (repeatable)")
	uploadCmd.Flags().BoolVar(&uploadViaAPI, "via-api", false, "let the running API perform the upload")
	RootCmd.AddCommand(uploadCmd)
}
