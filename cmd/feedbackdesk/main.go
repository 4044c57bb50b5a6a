package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/gotrs-feedback/internal/config"
	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
	"github.com/gotrs-io/gotrs-feedback/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "feedbackdesk",
	Short: "Send website feedback to a helpdesk as tickets",
	Long: `feedbackdesk turns website feedback into helpdesk tickets.

Use "submit" to send a single piece of feedback from the command line,
or "serve" to run the feedback form and JSON API over HTTP. Both can be
pointed at the built-in stub instead of the ticketing API.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPathFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", ".", "Directory containing config.yaml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkEmailCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionOutputFlag string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionOutputFlag == "text" {
			fmt.Fprintf(cmd.OutOrStdout(), "feedbackdesk %s\n", version.Full())
			return nil
		}
		return writeStructured(cmd.OutOrStdout(), versionOutputFlag, version.GetInfo())
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutputFlag, "output", "o", "text", "Output format: text, json or yaml")
}

var checkEmailCmd = &cobra.Command{
	Use:   "check-email <address>...",
	Short: "Check addresses against the ticketing API's email rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invalid := 0
		for _, address := range args {
			verdict := "valid"
			if !feedback.ValidEmail(address) {
				verdict = "invalid"
				invalid++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", verdict, address)
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d address(es) are invalid", invalid, len(args))
		}
		return nil
	},
}

// loadConfig loads configuration, falling back to defaults and environment.
func loadConfig() (*config.Config, error) {
	if err := config.Load(configPathFlag); err != nil {
		return nil, err
	}
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
