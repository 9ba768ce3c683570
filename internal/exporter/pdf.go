package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultPDFTimeout bounds one rendering, browser start included.
const DefaultPDFTimeout = 60 * time.Second

// PDFRenderer prints HTML pages with a headless Chrome.
type PDFRenderer struct {
	execPath string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPDFRenderer returns a renderer. An empty execPath lets chromedp look
// for Chrome on the PATH.
func NewPDFRenderer(execPath string, timeout time.Duration, logger *slog.Logger) *PDFRenderer {
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{execPath: execPath, timeout: timeout, logger: logger}
}

// Render loads html into a blank page and prints it to a landscape A4 PDF.
func (r *PDFRenderer) Render(ctx context.Context, html []byte) ([]byte, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", true))
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.timeout)
	defer cancelTimeout()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithLandscape(true).
				WithPrintBackground(true).
				WithPaperWidth(11.69).
				WithPaperHeight(8.27).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}

	r.logger.Debug("PDF rendered",
		slog.Int("html_bytes", len(html)),
		slog.Int("pdf_bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}
