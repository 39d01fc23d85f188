package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yigit/enrollplan/internal/app/auth"
	"github.com/yigit/enrollplan/internal/app/migrations"
	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/app/repositories"
	"github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/db"
	"github.com/yigit/enrollplan/internal/pkg/filestorage"
	"github.com/yigit/enrollplan/internal/pkg/logger"
	"github.com/yigit/enrollplan/internal/transcript"
)

type ingestResult struct {
	File   string                 `json:"file"`
	Record *dto.TranscriptSummary `json:"record,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		dbPath   string
		storeDir string
		userID   string
		workers  int
		ocrURL   string
		ocrModel string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest transcript documents into a SQLite record store",
		Long: `Ingest transcript documents concurrently against one catalog snapshot.
Documents are copied into --store-dir and records are written to the SQLite
database at --db. A document that cannot be read is reported and does not
stop the batch.`,
		Example: `  catalogctl ingest transcripts/*.pdf --catalog fall.parquet --user registrar
  catalogctl ingest scan.png --ocr-url http://localhost:11434`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lgr := logger.Component("ingest")

			snap, err := opts.loadSnapshot()
			if err != nil {
				return err
			}

			sqlDB, err := db.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := migrations.MigrateSQLite(ctx, sqlDB, lgr); err != nil {
				return err
			}
			records := repositories.NewSQLTranscriptRepository(sqlDB)

			docs, err := filestorage.NewLocalStorage(storeDir, "")
			if err != nil {
				return err
			}

			extractors := transcript.NewExtractors(transcript.DefaultMaxDocumentBytes)
			if ocrURL != "" {
				ocr := transcript.NewOllamaOCR(ocrURL, ocrModel, 2*timeout)
				for _, mime := range transcript.ImageTypes {
					extractors.Register(mime, ocr)
				}
			}
			pipeline := transcript.NewPipeline(docs, records, extractors, transcript.Options{ExtractTimeout: timeout}, lgr)
			provider := catalog.NewStaticProvider(snap)
			svc := services.NewTranscriptService(pipeline, docs, records, provider, auth.NewAuthorizationService(records), workers, lgr)

			refs := make([]string, 0, len(args))
			files := make(map[string]string, len(args))
			for _, path := range args {
				ref, err := storeFile(cmd, docs, path)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
				files[ref] = path
			}

			results, err := svc.IngestBatch(ctx, refs, userID)
			if err != nil {
				return err
			}

			out := make([]ingestResult, 0, len(results))
			failed := 0
			for _, r := range results {
				res := ingestResult{File: files[r.UploadRef]}
				if r.Record != nil {
					summary := dto.NewTranscriptSummary(r.Record)
					res.Record = &summary
				}
				if r.Err != nil {
					res.Error = r.Err.Error()
					failed++
				}
				out = append(out, res)
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "transcripts.db", "SQLite database for records")
	cmd.Flags().StringVar(&storeDir, "store-dir", "./uploads/transcripts", "Directory documents are copied into")
	cmd.Flags().StringVar(&userID, "user", "cli", "Owner of the ingested records")
	cmd.Flags().IntVar(&workers, "workers", 4, "Documents processed concurrently")
	cmd.Flags().StringVar(&ocrURL, "ocr-url", "", "Ollama base URL for image OCR")
	cmd.Flags().StringVar(&ocrModel, "ocr-model", "", "OCR vision model")
	cmd.Flags().DurationVar(&timeout, "timeout", transcript.DefaultExtractTimeout, "Extraction timeout per document")
	return cmd
}

func storeFile(cmd *cobra.Command, docs filestorage.DocumentStore, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	ref, err := docs.Save(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", path, err)
	}
	return ref, nil
}
