package engine

import (
	"context"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
)

// DetectSchema resolves a parser for fileName and runs its schema
// detection, returning a model.Schema ready to persist (spec §4.4) along
// with the parser's estimated total row count and the resolved Parser,
// so the caller can reuse it for the streaming pass without a second
// registry lookup.
func DetectSchema(ctx context.Context, registry *parser.Registry, jobID, fileName string, source parser.Source, opts parser.Options) (model.Schema, int64, parser.Parser, error) {
	p, err := registry.Resolve(fileName)
	if err != nil {
		return model.Schema{}, 0, nil, err
	}

	result, err := p.DetectSchema(ctx, source, opts)
	if err != nil {
		return model.Schema{}, 0, nil, err
	}

	schema := model.Schema{
		JobID:    jobID,
		FileName: fileName,
		Columns:  result.Columns,
	}
	return schema, result.EstimatedRowCount, p, nil
}
