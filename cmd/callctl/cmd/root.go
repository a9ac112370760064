package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Phuc-215/WEBRTC/internal/logging"
	"github.com/Phuc-215/WEBRTC/internal/version"
)

var serverURL string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "callctl",
	Short:   "Command-line client for the WebRTC signaling server",
	Long:    `callctl talks to the signaling server the same way the browser app does: it registers a name, joins rooms and watches membership and call events. Useful for poking at a running server without opening a browser.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	logging.Init()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "ws://localhost:3000/ws", "signaling server websocket URL")
}
