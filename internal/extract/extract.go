// Package extract maps parsed upstream pages to catalog records.
//
// Fields fall back through secondary locations before resolving to an empty
// string. Only a failure walking the tree fails the whole entity, and in
// multi-row entities a failing row is logged and skipped.
package extract

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

// errSkipRow drops a row that lacks a required field.
var errSkipRow = errors.New("row skipped")

// Extractor holds the shared logger for the entity extractors.
type Extractor struct {
	logger *zap.Logger
}

// New builds an Extractor. A nil logger discards output.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("extract")}
}

// recoverParse converts a panic raised while walking a page into a parse error.
func recoverParse(entity string, err *error) {
	if r := recover(); r != nil {
		*err = melon.Parse(entity, fmt.Errorf("panic: %v", r))
	}
}

// eachRow runs fn for every row, isolating failures to the row that caused them.
func (e *Extractor) eachRow(entity string, rows document.Node, fn func(i int, row document.Node) error) {
	rows.Each(func(i int, row document.Node) {
		if err := e.runRow(entity, i, row, fn); err != nil {
			if errors.Is(err, errSkipRow) {
				e.logger.Debug("row skipped", zap.String("entity", entity), zap.Int("row", i))
				return
			}
			e.logger.Warn("row extraction failed",
				zap.String("entity", entity),
				zap.Int("row", i),
				zap.Error(err),
			)
		}
	})
}

func (e *Extractor) runRow(
	entity string,
	i int,
	row document.Node,
	fn func(i int, row document.Node) error,
) (err error) {
	defer recoverParse(entity+" row", &err)
	return fn(i, row)
}
