package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/render"
	"github.com/ppiankov/wikigap/internal/store"
)

var (
	exportOut string
	exportS3  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export detected gaps and analysis history",
	Long: `Export writes the detected gaps and analysis history with summary
statistics to gap-detector-export-YYYY-MM-DD.json, and optionally
uploads the artifact to an S3-compatible bucket (export.s3_* settings).

Example:
  wikigap export
  wikigap export --out ./exports
  wikigap export --s3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := openManager(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return runExport(cmd, cfg, m)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", ".", "output directory")
	exportCmd.Flags().BoolVar(&exportS3, "s3", false, "also upload to the configured S3 bucket")
}

func runExport(cmd *cobra.Command, cfg *model.Config, m *store.Manager) error {
	artifact, err := m.Export(cmd.Context(), model.Version)
	if err != nil {
		return err
	}
	name := render.ExportFilename(time.Now())

	path := filepath.Join(exportOut, name)
	if err := render.WriteExport(artifact, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Exported %d analyses, %d gap records: %s\n",
		artifact.Summary.PagesAnalyzed, artifact.Summary.TotalGaps, path)

	if !exportS3 {
		return nil
	}
	uploader, err := render.NewS3Uploader(cfg.Export)
	if err != nil {
		return err
	}
	data, err := render.EncodeExport(artifact)
	if err != nil {
		return err
	}
	location, err := uploader.Upload(cmd.Context(), name, data)
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded: %s\n", location)
	return nil
}
