// Package cli implements the skinctl command line.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"traking-shop/internal/app"
	"traking-shop/internal/config"
	"traking-shop/internal/logtrace"
)

var (
	// Global flags
	jsonOutput bool

	cfg *config.Config
)

var okLabel = color.New(color.FgGreen)
var warnLabel = color.New(color.FgYellow)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skinctl [command] [flags]",
	Short: "skinctl - import the Valorant skin catalog and assign skins to accounts",
	Long: `skinctl drives the skin catalog pipeline from the command line.

Examples:
  # Import or refresh the catalog
  skinctl import

  # Give an account 40 balanced skins
  skinctl assign --product 6f1c... --count 40

  # Give an account every Prime skin plus 5 random others
  skinctl assign-collection --product 6f1c... --collection Prime --extra 5

  # Re-import every 6 hours
  skinctl daemon --interval 6h`,
	PersistentPreRun: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newAssignCollectionCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newDaemonCmd())
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads .env, configuration and logging before any command runs
func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	cfg = config.Load()
	logtrace.InitLogger(cfg.LogLevel, !jsonOutput && !cfg.IsProduction())
}

func newApp() (*app.App, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	return app.New(cfg)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
