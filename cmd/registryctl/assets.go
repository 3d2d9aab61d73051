package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage configuration-bearing assets",
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets in the current site",
	RunE:  runAssetsList,
}

var assetsGetCmd = &cobra.Command{
	Use:   "get <asset-id>",
	Short: "Show one asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsGet,
}

var (
	assetName        string
	assetDescription string
)

var assetsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new asset",
	RunE:  runAssetsCreate,
}

var assetsGoldenCmd = &cobra.Command{
	Use:   "golden <asset-id>",
	Short: "Show the asset's golden version, if any",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsGolden,
}

func init() {
	assetsCreateCmd.Flags().StringVar(&assetName, "name", "", "Asset name (required)")
	assetsCreateCmd.Flags().StringVar(&assetDescription, "description", "", "Asset description")
	_ = assetsCreateCmd.MarkFlagRequired("name")

	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsGetCmd)
	assetsCmd.AddCommand(assetsCreateCmd)
	assetsCmd.AddCommand(assetsGoldenCmd)
}

func runAssetsList(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp assetList
	if err := client.getJSON("/assets", &resp); err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Site", "Name", "Description", "Created"}
	rows := make([][]string, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		rows = append(rows, []string{
			a.ID,
			a.Site,
			a.Name,
			truncate(a.Description, 40),
			a.CreatedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runAssetsGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var a asset
	if err := client.getJSON("/assets/"+args[0], &a); err != nil {
		return fmt.Errorf("failed to get asset: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(a)
	}

	printTable([]string{"Field", "Value"}, [][]string{
		{"ID", a.ID},
		{"Site", a.Site},
		{"Name", a.Name},
		{"Description", a.Description},
		{"CreatedBy", a.CreatedBy},
		{"CreatedAt", a.CreatedAt},
	})
	return nil
}

func runAssetsCreate(cmd *cobra.Command, args []string) error {
	client := newClient()

	var a asset
	err := client.postJSON("/assets", map[string]string{
		"name":        assetName,
		"description": assetDescription,
	}, &a)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(a)
	}
	fmt.Printf("Created asset %s (%s)\n", a.Name, a.ID)
	return nil
}

func runAssetsGolden(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp goldenResponse
	if err := client.getJSON("/assets/"+args[0]+"/golden", &resp); err != nil {
		return fmt.Errorf("failed to get golden version: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	if resp.Golden == nil {
		fmt.Println("No golden version.")
		return nil
	}
	printVersionTable(*resp.Golden)
	return nil
}
