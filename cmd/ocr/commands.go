package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bosocmputer/doubtsolver/configs"
	"github.com/bosocmputer/doubtsolver/internal/logger"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/ocr/tesseract"
)

// textExtractor is the part of ocr.Selector the commands use
type textExtractor interface {
	Extract(ctx context.Context, data []byte) ocr.ExtractionOutcome
	Validate(data []byte) ocr.ValidationResult
	LocateRegions(ctx context.Context, data []byte) []ocr.TextRegion
}

// newExtractor builds the selector from flags, falling back to the environment
func newExtractor(cmd *cobra.Command) textExtractor {
	lang, _ := cmd.Flags().GetString("lang")
	if lang == "" {
		lang = configs.OCR_LANGUAGES
	}
	tessdata, _ := cmd.Flags().GetString("tessdata")
	if tessdata == "" {
		tessdata = configs.TESSDATA_PREFIX
	}
	parallel, _ := cmd.Flags().GetBool("parallel")

	return ocr.NewSelector(
		tesseract.NewEngine(ocr.ParseLanguages(lang), tessdata),
		ocr.WithParallel(parallel || configs.OCR_PARALLEL),
		ocr.WithDecoder(ocr.NewDecoder(configs.MAX_IMAGE_PIXELS)),
		ocr.WithLogger(logger.WithComponent("ocr")),
	)
}

var extractCmd = &cobra.Command{
	Use:     "extract [image-file]",
	Short:   "Pick the best transcription across preprocessing strategies",
	Example: "  doubtsolver-ocr extract question.png\n  doubtsolver-ocr extract scan.jpg --parallel -o result.json",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithImage(cmd, args[0], func(ctx context.Context, x textExtractor, data []byte) any {
			return x.Extract(ctx, data)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [image-file]",
	Short: "Report format, size, colour mode and quality without recognition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithImage(cmd, args[0], func(_ context.Context, x textExtractor, data []byte) any {
			return x.Validate(data)
		})
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions [image-file]",
	Short: "List confident words with bounding boxes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithImage(cmd, args[0], func(ctx context.Context, x textExtractor, data []byte) any {
			return map[string]any{"regions": x.LocateRegions(ctx, data)}
		})
	},
}

func runWithImage(cmd *cobra.Command, path string, op func(context.Context, textExtractor, []byte) any) error {
	log := logger.WithComponent("ocr-cli")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if timeoutSecs <= 0 {
		timeoutSecs = configs.OCR_TIMEOUT
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
		defer cancel()
	}

	start := time.Now()
	result := op(ctx, newExtractor(cmd), data)
	log.Debug().Str("file", path).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("done")

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return writeJSON(f, result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
