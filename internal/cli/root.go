package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "caryatid",
		Short: "Publish Vagrant boxes to a static catalog",
		Long: `Caryatid uploads box files built by tools such as Packer and records
them in a JSON catalog that Vagrant can use as a box URL.

Supported destinations:
  - local directories
  - remote hosts over scp
  - S3-compatible object storage`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (flags and CARYATID_* variables take precedence)")

	// Add subcommands
	rootCmd.AddCommand(NewPublishCmd())
	rootCmd.AddCommand(NewShowCmd())

	return rootCmd
}
