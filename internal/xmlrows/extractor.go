package xmlrows

import (
	"fmt"
	"log/slog"
)

// Extractor tries the structured parser and recovers with the text scan.
// It never fails: unrecoverable input yields an empty Result.
type Extractor struct {
	structured Strategy
	fallback   Strategy
	logger     *slog.Logger
	onFallback func(name string)
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger used for fallback and failure diagnostics.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFallbackHook registers fn, called with the document name each time
// the text scan recovers rows.
func WithFallbackHook(fn func(name string)) ExtractorOption {
	return func(e *Extractor) { e.onFallback = fn }
}

// NewExtractor returns an Extractor using StructuredParser and TextScanner.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		structured: StructuredParser{},
		fallback:   TextScanner{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the rows of text.
func (e *Extractor) Extract(text, itemHint string) Result {
	return e.ExtractDocument("", text, itemHint)
}

// ExtractDocument is Extract with a document name for diagnostics.
func (e *Extractor) ExtractDocument(name, text, itemHint string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("row extraction panicked",
				slog.String("document", name),
				slog.String("panic", fmt.Sprint(r)))
			res = Result{Kind: KindTextScan}
		}
	}()

	res, err := e.structured.Extract(text, itemHint)
	if err == nil {
		return res
	}
	e.logger.Debug("structured parse rejected document, scanning text",
		slog.String("document", name),
		slog.String("error", err.Error()))

	res, err = e.fallback.Extract(text, itemHint)
	if err != nil {
		e.logger.Warn("no rows recoverable",
			slog.String("document", name),
			slog.String("error", err.Error()))
		return Result{Kind: KindTextScan}
	}
	if e.onFallback != nil {
		e.onFallback(name)
	}
	return res
}
