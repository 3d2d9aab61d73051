package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage configuration versions",
}

var (
	importFilePath string
	importGitURL   string
	importGitRef   string
	importGitPath  string
	importNotes    string
	filterQuery    string
	changeReason   string
	targetStatus   string
	exportPath     string
)

var versionsImportCmd = &cobra.Command{
	Use:   "import <asset-id>",
	Short: "Import a configuration file as a new draft version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsImport,
}

var versionsListCmd = &cobra.Command{
	Use:   "list <asset-id>",
	Short: "List an asset's versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsList,
}

var versionsGetCmd = &cobra.Command{
	Use:   "get <version-id>",
	Short: "Show one version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsGet,
}

var versionsTransitionsCmd = &cobra.Command{
	Use:   "transitions <version-id>",
	Short: "Show the statuses a version may move to",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsTransitions,
}

var versionsStatusCmd = &cobra.Command{
	Use:   "status <version-id>",
	Short: "Change a version's lifecycle status",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsStatus,
}

var versionsEligibilityCmd = &cobra.Command{
	Use:   "eligibility <version-id>",
	Short: "Check whether a version may be promoted to golden",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsEligibility,
}

var versionsPromoteCmd = &cobra.Command{
	Use:   "promote <version-id>",
	Short: "Promote a version to golden, demoting the previous golden",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsPromote,
}

var versionsArchiveCmd = &cobra.Command{
	Use:   "archive <version-id>",
	Short: "Archive a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsArchive,
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore <version-id>",
	Short: "Restore an archived version to its last active status",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsRestore,
}

var versionsHistoryCmd = &cobra.Command{
	Use:   "history <version-id>",
	Short: "Show a version's status change history",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsHistory,
}

var versionsExportCmd = &cobra.Command{
	Use:   "export <version-id>",
	Short: "Export a version's content to a server-side path",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsExport,
}

func init() {
	versionsImportCmd.Flags().StringVar(&importFilePath, "file", "", "Server-reachable path of the configuration file")
	versionsImportCmd.Flags().StringVar(&importGitURL, "git-url", "", "Git repository clone URL")
	versionsImportCmd.Flags().StringVar(&importGitRef, "git-ref", "", "Git branch (default main)")
	versionsImportCmd.Flags().StringVar(&importGitPath, "git-path", "", "Repo-relative path of the configuration file")
	versionsImportCmd.Flags().StringVar(&importNotes, "notes", "", "Import notes")

	versionsListCmd.Flags().StringVar(&filterQuery, "filter", "", `Filter query, e.g. 'status = "golden"'`)

	versionsStatusCmd.Flags().StringVar(&targetStatus, "to", "", "Target status (required)")
	versionsStatusCmd.Flags().StringVar(&changeReason, "reason", "", "Reason for the change")
	_ = versionsStatusCmd.MarkFlagRequired("to")

	versionsPromoteCmd.Flags().StringVar(&changeReason, "reason", "", "Reason for the promotion")
	versionsArchiveCmd.Flags().StringVar(&changeReason, "reason", "", "Reason for archiving")
	versionsRestoreCmd.Flags().StringVar(&changeReason, "reason", "", "Reason for restoring")

	versionsExportCmd.Flags().StringVar(&exportPath, "to", "", "Destination path on the server (required)")
	_ = versionsExportCmd.MarkFlagRequired("to")

	versionsCmd.AddCommand(versionsImportCmd)
	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsGetCmd)
	versionsCmd.AddCommand(versionsTransitionsCmd)
	versionsCmd.AddCommand(versionsStatusCmd)
	versionsCmd.AddCommand(versionsEligibilityCmd)
	versionsCmd.AddCommand(versionsPromoteCmd)
	versionsCmd.AddCommand(versionsArchiveCmd)
	versionsCmd.AddCommand(versionsRestoreCmd)
	versionsCmd.AddCommand(versionsHistoryCmd)
	versionsCmd.AddCommand(versionsExportCmd)
}

func runVersionsImport(cmd *cobra.Command, args []string) error {
	client := newClient()

	body := map[string]any{"notes": importNotes}
	switch {
	case importFilePath != "" && importGitURL != "":
		return fmt.Errorf("--file and --git-url are mutually exclusive")
	case importFilePath != "":
		body["filePath"] = importFilePath
	case importGitURL != "":
		if importGitPath == "" {
			return fmt.Errorf("--git-path is required with --git-url")
		}
		body["git"] = gitSpec{URL: importGitURL, Ref: importGitRef, Path: importGitPath}
	default:
		return fmt.Errorf("either --file or --git-url is required")
	}

	var v version
	if err := client.postJSON("/assets/"+args[0]+"/versions", body, &v); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(v)
	}
	fmt.Printf("Imported %s as %s (%s)\n", v.FileName, v.VersionNumber, v.ID)
	return nil
}

func runVersionsList(cmd *cobra.Command, args []string) error {
	client := newClient()

	path := "/assets/" + args[0] + "/versions"
	if filterQuery != "" {
		path += "?filterQuery=" + url.QueryEscape(filterQuery)
	}

	var resp versionList
	if err := client.getJSON(path, &resp); err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	headers := []string{"ID", "Version", "Status", "File", "Author", "Created"}
	rows := make([][]string, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		rows = append(rows, []string{
			v.ID,
			v.VersionNumber,
			v.Status,
			truncate(v.FileName, 30),
			v.Author,
			v.CreatedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runVersionsGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var v version
	if err := client.getJSON("/versions/"+args[0], &v); err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(v)
	}
	printVersionTable(v)
	return nil
}

func runVersionsTransitions(cmd *cobra.Command, args []string) error {
	client := newClient()

	var set transitionSet
	if err := client.getJSON("/versions/"+args[0]+"/transitions", &set); err != nil {
		return fmt.Errorf("failed to get transitions: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(set)
	}
	fmt.Printf("Current status: %s\n", set.CurrentStatus)
	if len(set.Available) == 0 {
		fmt.Println("No transitions available.")
		return nil
	}
	fmt.Printf("Available: %v\n", set.Available)
	return nil
}

func runVersionsStatus(cmd *cobra.Command, args []string) error {
	return postStatusChange("/versions/"+args[0]+"/status",
		map[string]string{"status": targetStatus, "reason": changeReason})
}

func runVersionsEligibility(cmd *cobra.Command, args []string) error {
	client := newClient()

	var e eligibility
	if err := client.getJSON("/versions/"+args[0]+"/eligibility", &e); err != nil {
		return fmt.Errorf("failed to get eligibility: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(e)
	}
	if e.Eligible {
		fmt.Printf("Eligible for golden (current status %s)\n", e.CurrentStatus)
	} else {
		fmt.Printf("Not eligible: %s\n", e.Reason)
	}
	return nil
}

func runVersionsPromote(cmd *cobra.Command, args []string) error {
	return postStatusChange("/versions/"+args[0]+"/promote",
		map[string]string{"reason": changeReason})
}

func runVersionsArchive(cmd *cobra.Command, args []string) error {
	return postStatusChange("/versions/"+args[0]+"/archive",
		map[string]string{"reason": changeReason})
}

func runVersionsRestore(cmd *cobra.Command, args []string) error {
	return postStatusChange("/versions/"+args[0]+"/restore",
		map[string]string{"reason": changeReason})
}

func runVersionsHistory(cmd *cobra.Command, args []string) error {
	client := newClient()

	var h statusHistory
	if err := client.getJSON("/versions/"+args[0]+"/history", &h); err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(h)
	}

	headers := []string{"From", "To", "By", "Reason", "At"}
	rows := make([][]string, 0, len(h.Changes))
	for _, c := range h.Changes {
		from := c.OldStatus
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{
			from,
			c.NewStatus,
			c.ChangedBy,
			truncate(c.Reason, 40),
			c.CreatedAt,
		})
	}
	printTable(headers, rows)
	return nil
}

func runVersionsExport(cmd *cobra.Command, args []string) error {
	client := newClient()

	var result exportResult
	err := client.postJSON("/versions/"+args[0]+"/export",
		map[string]string{"exportPath": exportPath}, &result)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(result)
	}
	fmt.Printf("Exported %s to %s (sha256 %s)\n", result.FileName, result.ExportPath, result.ContentHash)
	return nil
}

// postStatusChange posts a lifecycle mutation and prints the updated version.
func postStatusChange(path string, body any) error {
	client := newClient()

	var v version
	if err := client.postJSON(path, body, &v); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(v)
	}
	fmt.Printf("%s is now %s\n", v.VersionNumber, v.Status)
	return nil
}

// printVersionTable renders one version as a field table.
func printVersionTable(v version) {
	printTable([]string{"Field", "Value"}, [][]string{
		{"ID", v.ID},
		{"Asset", v.AssetID},
		{"Version", v.VersionNumber},
		{"Status", v.Status},
		{"File", v.FileName},
		{"Size", fmt.Sprintf("%d", v.FileSize)},
		{"Hash", v.ContentHash},
		{"Author", v.Author},
		{"Notes", truncate(v.Notes, 60)},
		{"CreatedAt", v.CreatedAt},
	})
}
