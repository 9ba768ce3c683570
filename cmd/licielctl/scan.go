package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"liciel/internal/config"
	"liciel/internal/exporter"
	"liciel/internal/files"
	"liciel/internal/infrastructure"
	"liciel/internal/mission"
	"liciel/internal/payload"
	"liciel/internal/scanner"
	"liciel/internal/synthesis"
)

type scanOptions struct {
	prefix          string
	workers         int
	field           string
	value           string
	domains         []string
	formats         []string
	outDir          string
	operatorPrefix  string
	annotateSamples bool
	noBOM           bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Scan the mission folders below root",
		Long: `Scan every mission folder below root and print the interchange
payload as JSON. With --format, the synthesis table is also written to
--out in each requested format (csv, xlsx, html, pdf).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prefix, "prefix", "", "Only scan folders whose name starts with prefix")
	f.IntVar(&opts.workers, "workers", 4, "Folders scanned concurrently")
	f.StringVar(&opts.field, "field", "", "Filter field: donneur|proprietaire|diagnostiqueur|ville|rue|batiment")
	f.StringVar(&opts.value, "value", "", "Filter value for --field")
	f.StringSliceVar(&opts.domains, "domain", nil, "Required diagnostic domain (repeatable)")
	f.StringSliceVar(&opts.formats, "format", nil, "Export formats to write (repeatable)")
	f.StringVarP(&opts.outDir, "out", "o", ".", "Directory for exported files")
	f.StringVar(&opts.operatorPrefix, "operator-prefix", "", "Text prepended to the operator name")
	f.BoolVar(&opts.annotateSamples, "annotate-samples", false, "Write sample ids as \"id (location)\"")
	f.BoolVar(&opts.noBOM, "no-bom", false, "Omit the UTF-8 byte order mark from CSV output")
	return cmd
}

func (o *scanOptions) filter() (mission.Filter, error) {
	flt := mission.Filter{
		Field:   mission.Field(o.field),
		Value:   o.value,
		Domains: o.domains,
	}
	if flt.Field != "" && !flt.Field.Valid() {
		return flt, fmt.Errorf("unknown filter field %q", o.field)
	}
	if flt.Field == "" && flt.Value != "" {
		return flt, fmt.Errorf("--value requires --field")
	}
	return flt, nil
}

func (o *scanOptions) exportFormats() ([]exporter.Format, error) {
	var out []exporter.Format
	for _, s := range o.formats {
		f, err := exporter.ParseFormat(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func runScan(ctx context.Context, cmd *cobra.Command, root string, opts *scanOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	flt, err := opts.filter()
	if err != nil {
		return err
	}
	formats, err := opts.exportFormats()
	if err != nil {
		return err
	}

	logger := cliLogger(cmd, "scan")
	builder := mission.NewBuilder(
		mission.WithProjector(synthesis.Projector{
			OperatorPrefix:  opts.operatorPrefix,
			AnnotateSamples: opts.annotateSamples,
		}),
		mission.WithLogger(logger),
	)
	sc := scanner.New(builder, scanner.WithLogger(logger))

	res, err := sc.Scan(ctx, root, scanner.Options{Prefix: opts.prefix, Workers: opts.workers})
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		logger.Warn("folder skipped",
			slog.String("folder", s.ID),
			slog.String("reason", s.Reason))
	}

	p, err := payload.FromMissions(res.Missions, flt, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s : %d ligne(s), %d mission(s) sur %d dossier(s) en %s\n",
		p.Meta.Label, len(p.Rows), len(res.Missions), res.Total, res.Elapsed.Round(time.Millisecond))

	if len(formats) == 0 {
		return writePayload(cmd.OutOrStdout(), p)
	}

	exp := exporter.New(
		exporter.WithBOM(!opts.noBOM),
		exporter.WithPDF(exporter.NewPDFRenderer(os.Getenv(config.EnvPrefix+"_EXPORT_CHROME_PATH"), exporter.DefaultPDFTimeout, logger)),
		exporter.WithLogger(logger),
	)
	out := files.NewManager(opts.outDir)
	doc := exporter.Document{Label: p.Meta.Label, Rows: p.Rows, GeneratedAt: time.Now()}
	for _, f := range formats {
		path, err := exp.Write(ctx, out, f, doc)
		if err != nil {
			return fmt.Errorf("%s export: %w", f, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

func writePayload(w io.Writer, p *payload.Payload) error {
	data, err := payload.Encode(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// cliLogger writes text logs to stderr at the --log-level threshold.
func cliLogger(cmd *cobra.Command, component string) *slog.Logger {
	cfg := config.Default().Logging
	cfg.Format = "text"
	if level, err := cmd.Flags().GetString("log-level"); err == nil && level != "" {
		cfg.Level = level
	}
	return infrastructure.WithComponent(infrastructure.NewLogger(cfg, cmd.ErrOrStderr()), component)
}
