// main.go - Command line access to the text extraction selector.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bosocmputer/doubtsolver/configs"
	"github.com/bosocmputer/doubtsolver/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "doubtsolver-ocr",
	Short: "Extract text from question images with Tesseract",
	Long: `doubtsolver-ocr runs the same text extraction the API uses on a local
image file and prints the result as JSON.

Several preprocessing strategies (original, grayscale, threshold,
noise_removal, enhanced) are tried and the one with the most confident
words wins.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configs.LoadOCRConfig()
		level := configs.LOG_LEVEL
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		return logger.Setup(logger.LogConfig{
			Level:      level,
			Format:     "console",
			TimeFormat: time.RFC3339,
			Output:     os.Stderr,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("lang", "", "Tesseract languages, e.g. eng+hin (default: OCR_LANGUAGES)")
	rootCmd.PersistentFlags().String("tessdata", "", "Tesseract data directory (default: TESSDATA_PREFIX)")
	rootCmd.PersistentFlags().Bool("parallel", false, "Evaluate strategies concurrently")
	rootCmd.PersistentFlags().Int("timeout", 0, "Timeout in seconds (default: OCR_TIMEOUT)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging on stderr")

	rootCmd.AddCommand(extractCmd, validateCmd, regionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
