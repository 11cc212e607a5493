package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nvidia/nim-usage-scanner/internal/config"
	"github.com/nvidia/nim-usage-scanner/internal/ngc"
)

func newQueryCommand(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query NGC for one NIM directly",
	}
	cmd.AddCommand(newQueryLocalCommand(verbose))
	cmd.AddCommand(newQueryHostedCommand(verbose))
	return cmd
}

func newQueryClient(verbose bool) (*ngc.Client, error) {
	log, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}
	cfg := config.Load()
	if cfg.NGCAPIKey == "" {
		return nil, errors.New("NVIDIA_API_KEY is required for query")
	}
	return ngc.NewClient(cfg.NGCAPIKey, log,
		ngc.WithBaseURLs(cfg.RegistryBase, cfg.NVCFBase),
		ngc.WithOrgID(cfg.NGCOrgID)), nil
}

func newQueryLocalCommand(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "local-nim <team/model>",
		Short: "Resolve the latest published tag for a Local NIM image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newQueryClient(*verbose)
			if err != nil {
				return err
			}
			tag, err := client.ResolveLatestTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"image_path": args[0],
				"latest_tag": tag,
			})
		},
	}
}

func newQueryHostedCommand(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hosted-nim <model>",
		Short: "Look up the NVCF function serving a hosted model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newQueryClient(*verbose)
			if err != nil {
				return err
			}
			det, err := client.GetFunctionDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, det)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
