package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Manage integrity scans",
}

var scanAssetID string

var scansStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Queue an integrity scan (all versions, or one asset with --asset)",
	RunE:  runScansStart,
}

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List integrity scan jobs",
	RunE:  runScansList,
}

var scansGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one scan job",
	Args:  cobra.ExactArgs(1),
	RunE:  runScansGet,
}

var scansCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued scan job",
	Args:  cobra.ExactArgs(1),
	RunE:  runScansCancel,
}

func init() {
	scansStartCmd.Flags().StringVar(&scanAssetID, "asset", "", "Scan only this asset's versions")

	scansCmd.AddCommand(scansStartCmd)
	scansCmd.AddCommand(scansListCmd)
	scansCmd.AddCommand(scansGetCmd)
	scansCmd.AddCommand(scansCancelCmd)
}

func runScansStart(cmd *cobra.Command, args []string) error {
	client := newClient()

	var job scanJob
	err := client.postJSON("/integrity-scans", map[string]string{"assetId": scanAssetID}, &job)
	if err != nil {
		return fmt.Errorf("failed to queue scan: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(job)
	}
	fmt.Printf("Queued scan %s (state %s)\n", job.ID, job.State)
	return nil
}

func runScansList(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp scanJobList
	if err := client.getJSON("/integrity-scans", &resp); err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Asset", "State", "Checked", "Mismatches", "Requested"}
	rows := make([][]string, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		assetID := j.AssetID
		if assetID == "" {
			assetID = "(all)"
		}
		rows = append(rows, []string{
			j.ID,
			assetID,
			j.State,
			fmt.Sprintf("%d", j.VersionsChecked),
			fmt.Sprintf("%d", len(j.Mismatches)),
			j.RequestedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runScansGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var job scanJob
	if err := client.getJSON("/integrity-scans/"+args[0], &job); err != nil {
		return fmt.Errorf("failed to get scan: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(job)
	}

	rows := [][]string{
		{"ID", job.ID},
		{"Asset", job.AssetID},
		{"State", job.State},
		{"RequestedBy", job.RequestedBy},
		{"RequestedAt", job.RequestedAt},
		{"Checked", fmt.Sprintf("%d", job.VersionsChecked)},
		{"Message", job.Message},
	}
	for _, m := range job.Mismatches {
		rows = append(rows, []string{"Mismatch", m})
	}
	printTable([]string{"Field", "Value"}, rows)
	return nil
}

func runScansCancel(cmd *cobra.Command, args []string) error {
	client := newClient()

	if err := client.postJSON("/integrity-scans/"+args[0]+":cancel", map[string]string{}, nil); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Printf("Canceled scan %s\n", args[0])
	return nil
}
