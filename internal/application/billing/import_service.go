package billing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
	"github.com/tecnipro/cobranzas/internal/infrastructure/extract"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
)

// ImportResult summarizes one extract file import
type ImportResult struct {
	Period      string             `json:"period"`
	SourceFile  string             `json:"source_file"`
	TotalRows   int                `json:"total_rows"`
	Imported    int                `json:"imported"`
	Duplicates  int                `json:"duplicates"`
	SkippedRows int                `json:"skipped_rows"`
	Errors      []extract.RowError `json:"errors,omitempty"`
	Warnings    []extract.RowError `json:"warnings,omitempty"`
}

// ImportService loads SII sales register extracts into the document store.
// Re-importing a file is harmless: already-known (type, folio) identities are
// counted as duplicates and left untouched.
type ImportService struct {
	uow    UnitOfWork
	parser *extract.Parser
	logger *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(uow UnitOfWork, parser *extract.Parser, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{uow: uow, parser: parser, logger: logger}
}

// Import parses one extract from a reader and stores its documents.
// The filename must encode the tax period.
func (s *ImportService) Import(ctx context.Context, sourceFile string, r io.Reader, actor audit.Actor) (*ImportResult, error) {
	parsed, err := s.parser.Parse(sourceFile, r)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, parsed, actor)
}

// ImportFile parses one extract file from disk and stores its documents
func (s *ImportService) ImportFile(ctx context.Context, path string, actor audit.Actor) (*ImportResult, error) {
	parsed, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, parsed, actor)
}

// ImportDirectory imports every extract in a directory, earliest tax period
// first. Files whose names encode no period fail the batch before any write.
func (s *ImportService) ImportDirectory(ctx context.Context, dir string, actor audit.Actor) ([]*ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extract directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext != ".csv" && ext != ".CSV" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return s.ImportBatch(ctx, paths, actor)
}

// ImportBatch imports a set of extract files ordered by tax period
func (s *ImportService) ImportBatch(ctx context.Context, paths []string, actor audit.Actor) ([]*ImportResult, error) {
	parsed, err := s.parser.ParseAll(paths)
	if err != nil {
		return nil, err
	}
	results := make([]*ImportResult, 0, len(parsed))
	for _, p := range parsed {
		result, err := s.store(ctx, p, actor)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// store persists the parsed documents of one file in a single transaction
func (s *ImportService) store(ctx context.Context, parsed *extract.Result, actor audit.Actor) (*ImportResult, error) {
	result := &ImportResult{
		Period:      parsed.Period,
		SourceFile:  parsed.SourceFile,
		TotalRows:   parsed.TotalRows,
		SkippedRows: parsed.SkippedRows,
		Errors:      parsed.Errors,
		Warnings:    parsed.Warnings,
	}

	err := s.uow.WithinTx(ctx, func(r persistence.Repos) error {
		for _, doc := range parsed.Documents {
			inserted, _, err := r.Documents.InsertIfAbsent(ctx, doc)
			if err != nil {
				return fmt.Errorf("failed to store folio %d: %w", doc.Folio, err)
			}
			if inserted {
				result.Imported++
			} else {
				result.Duplicates++
			}
		}

		detail := fmt.Sprintf("Extract %s (period %s): %d imported, %d duplicates, %d row errors",
			parsed.SourceFile, parsed.Period, result.Imported, result.Duplicates, len(result.Errors))
		entry, err := audit.NewEntry(actor, audit.ActionImportExtract, detail)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Extract imported",
		zap.String("file", parsed.SourceFile),
		zap.String("period", parsed.Period),
		zap.Int("imported", result.Imported),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}
