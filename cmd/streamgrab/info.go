package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/heyjunin/StreamGrab/pkg/extractor"
	"github.com/heyjunin/StreamGrab/pkg/logger"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "List the formats a media page offers",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the listing as JSON, as served by GET /info")
	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := extractor.ValidateURL(args[0]); err != nil {
		return err
	}
	if err := cfg.Resolve(); err != nil {
		return err
	}

	client := extractor.New(extractor.Options{
		Binary:    cfg.YtDlpBinary,
		Timeout:   cfg.ExtractTimeout,
		ExtraArgs: cfg.YtDlpExtraArgs,
		Logger:    logger.NewLogger(),
	})
	catalog, err := client.GetInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	info := media.NewInfo(catalog)
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	printInfo(cmd.OutOrStdout(), info)
	return nil
}

func printInfo(w io.Writer, info media.Info) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprintln(w, info.Title)
	faint.Fprintf(w, "by %s, %s, %s views\n\n",
		orUnknown(info.VideoDetails.Author),
		formatDuration(info.VideoDetails.LengthSeconds),
		info.VideoDetails.ViewCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITAG\tQUALITY\tCONTAINER\tTRACKS")
	for _, f := range info.Formats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Itag, f.QualityLabel, f.Container, tracks(f))
	}
	tw.Flush()
}

func tracks(f media.FormatLabel) string {
	switch {
	case f.HasVideo && f.HasAudio:
		return "video+audio"
	case f.HasVideo:
		return "video (audio muxed in)"
	default:
		return "audio"
	}
}

func formatDuration(seconds string) string {
	n, err := strconv.Atoi(seconds)
	if err != nil || n <= 0 {
		return "unknown length"
	}
	if n >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", n/3600, n%3600/60, n%60)
	}
	return fmt.Sprintf("%d:%02d", n/60, n%60)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
