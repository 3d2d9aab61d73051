package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "Manage working branches",
}

var (
	branchName        string
	branchDescription string
	branchParent      string
	branchNotes       string
	branchFilePath    string
	compareV1         string
	compareV2         string
	promoteReason     string
)

var branchesCreateCmd = &cobra.Command{
	Use:   "create <asset-id>",
	Short: "Create a branch from a main-line version",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesCreate,
}

var branchesListCmd = &cobra.Command{
	Use:   "list <asset-id>",
	Short: "List an asset's branches",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesList,
}

var branchesImportCmd = &cobra.Command{
	Use:   "import <branch-id>",
	Short: "Import a configuration file as a new branch version",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesImport,
}

var branchesVersionsCmd = &cobra.Command{
	Use:   "versions <branch-id>",
	Short: "List a branch's versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesVersions,
}

var branchesCompareCmd = &cobra.Command{
	Use:   "compare <branch-id>",
	Short: "Diff two versions of a branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesCompare,
}

var branchesPromoteCmd = &cobra.Command{
	Use:   "promote <branch-id>",
	Short: "Promote the branch's latest version to a silver main-line version",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesPromote,
}

var branchesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <branch-id>",
	Short: "Deactivate a branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchesDeactivate,
}

func init() {
	branchesCreateCmd.Flags().StringVar(&branchName, "name", "", "Branch name (required)")
	branchesCreateCmd.Flags().StringVar(&branchDescription, "description", "", "Branch description")
	branchesCreateCmd.Flags().StringVar(&branchParent, "from-version", "", "Parent main-line version id (required)")
	_ = branchesCreateCmd.MarkFlagRequired("name")
	_ = branchesCreateCmd.MarkFlagRequired("from-version")

	branchesImportCmd.Flags().StringVar(&branchFilePath, "file", "", "Server-reachable path of the configuration file (required)")
	branchesImportCmd.Flags().StringVar(&branchNotes, "notes", "", "Import notes")
	_ = branchesImportCmd.MarkFlagRequired("file")

	branchesCompareCmd.Flags().StringVar(&compareV1, "version1", "", "First branch version id (required)")
	branchesCompareCmd.Flags().StringVar(&compareV2, "version2", "", "Second branch version id (required)")
	_ = branchesCompareCmd.MarkFlagRequired("version1")
	_ = branchesCompareCmd.MarkFlagRequired("version2")

	branchesPromoteCmd.Flags().StringVar(&promoteReason, "reason", "", "Reason for the promotion")

	branchesCmd.AddCommand(branchesCreateCmd)
	branchesCmd.AddCommand(branchesListCmd)
	branchesCmd.AddCommand(branchesImportCmd)
	branchesCmd.AddCommand(branchesVersionsCmd)
	branchesCmd.AddCommand(branchesCompareCmd)
	branchesCmd.AddCommand(branchesPromoteCmd)
	branchesCmd.AddCommand(branchesDeactivateCmd)
}

func runBranchesCreate(cmd *cobra.Command, args []string) error {
	client := newClient()

	var b branch
	err := client.postJSON("/assets/"+args[0]+"/branches", map[string]string{
		"name":            branchName,
		"description":     branchDescription,
		"parentVersionId": branchParent,
	}, &b)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(b)
	}
	fmt.Printf("Created branch %s (%s) from %s\n", b.Name, b.ID, b.ParentVersionNumber)
	return nil
}

func runBranchesList(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp branchList
	if err := client.getJSON("/assets/"+args[0]+"/branches", &resp); err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Name", "Parent", "Active", "Parent Archived", "Created"}
	rows := make([][]string, 0, len(resp.Branches))
	for _, b := range resp.Branches {
		active := "yes"
		if !b.IsActive {
			active = "no"
		}
		parentArchived := ""
		if b.ParentArchived {
			parentArchived = "yes"
		}
		rows = append(rows, []string{
			b.ID,
			b.Name,
			b.ParentVersionNumber,
			active,
			parentArchived,
			b.CreatedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runBranchesImport(cmd *cobra.Command, args []string) error {
	client := newClient()

	var v branchVersion
	err := client.postJSON("/branches/"+args[0]+"/versions", map[string]any{
		"filePath": branchFilePath,
		"notes":    branchNotes,
	}, &v)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(v)
	}
	fmt.Printf("Imported %s as %s (%s)\n", v.FileName, v.VersionNumber, v.ID)
	return nil
}

func runBranchesVersions(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp branchVersionList
	if err := client.getJSON("/branches/"+args[0]+"/versions", &resp); err != nil {
		return fmt.Errorf("failed to list branch versions: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Version", "Latest", "File", "Author", "Created"}
	rows := make([][]string, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		latest := ""
		if v.IsBranchLatest {
			latest = "yes"
		}
		rows = append(rows, []string{
			v.ID,
			v.VersionNumber,
			latest,
			truncate(v.FileName, 30),
			v.Author,
			v.CreatedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runBranchesCompare(cmd *cobra.Command, args []string) error {
	client := newClient()

	path := fmt.Sprintf("/branches/%s/compare?version1=%s&version2=%s",
		args[0], url.QueryEscape(compareV1), url.QueryEscape(compareV2))

	var result compareResult
	if err := client.getJSON(path, &result); err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(result)
	}

	if result.Identical {
		fmt.Printf("%s and %s are identical\n", result.VersionNumber1, result.VersionNumber2)
		return nil
	}
	fmt.Printf("--- %s\n+++ %s\n%s", result.VersionNumber1, result.VersionNumber2, result.Diff)
	return nil
}

func runBranchesPromote(cmd *cobra.Command, args []string) error {
	client := newClient()

	var v version
	err := client.postJSON("/branches/"+args[0]+"/promote",
		map[string]string{"reason": promoteReason}, &v)
	if err != nil {
		return fmt.Errorf("promotion failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(v)
	}
	fmt.Printf("Promoted branch to main-line %s (%s), status %s\n", v.VersionNumber, v.ID, v.Status)
	return nil
}

func runBranchesDeactivate(cmd *cobra.Command, args []string) error {
	client := newClient()

	var b branch
	if err := client.postJSON("/branches/"+args[0]+"/deactivate", map[string]string{}, &b); err != nil {
		return fmt.Errorf("deactivation failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(b)
	}
	fmt.Printf("Deactivated branch %s\n", b.Name)
	return nil
}
