package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/protocol-extractor/internal/chunk"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/fields"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
	"github.com/joseph-ayodele/protocol-extractor/internal/textextract"
)

// NewFromConfig wires the default extractor, splitter and assembler from
// cfg around q.
func NewFromConfig(cfg *common.Config, q llm.Querier, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	extractor := textextract.NewExtractor(textextract.ConfigFrom(cfg.Extract), logger)
	splitter := chunk.NewSplitter(cfg.Chunk.MaxSize)
	fx := fields.NewExtractor(q, fields.Config{MaxCountedOutcomes: cfg.Fields.MaxCountedOutcomes}, logger)
	assembler := NewAssembler(fx, logger, WithPrefixChunks(cfg.Fields.PrefixChunks))
	return NewProcessor(logger, extractor, splitter, assembler, opts...)
}
