package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	serverURL string
	outputFmt string
	siteName  string
	userName  string
	groups    string
)

var rootCmd = &cobra.Command{
	Use:   "registryctl",
	Short: "CLI for the configuration registry",
	Long: `registryctl manages configuration versions and branches in the registry.

Versions move through the draft/silver/approved/golden/archived lifecycle;
registryctl drives imports, status changes, golden promotion, archival and
branch work against the registry HTTP API.`,
}

func init() {
	// Accept both --as-user and --as_user style flags.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Registry server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&siteName, "site", "", "Site for multi-site operations (default: from REGISTRY_SITE env)")
	rootCmd.PersistentFlags().StringVar(&userName, "as-user", "", "Identity sent as X-Remote-User (default: from REGISTRY_USER env)")
	rootCmd.PersistentFlags().StringVar(&groups, "as-groups", "", "Comma-separated groups sent as X-Remote-Group")

	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(scansCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedSite returns the effective site.
// Priority: --site flag > REGISTRY_SITE env var > unset (single-site mode).
func resolvedSite() string {
	if siteName != "" {
		return siteName
	}
	return os.Getenv("REGISTRY_SITE")
}

// resolvedUser returns the identity to send with requests.
func resolvedUser() string {
	if userName != "" {
		return userName
	}
	return os.Getenv("REGISTRY_USER")
}
