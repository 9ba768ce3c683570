package mission

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apierrors "liciel/internal/errors"
	"liciel/internal/infrastructure"
	"liciel/internal/reconcile"
	"liciel/internal/synthesis"
	"liciel/internal/tables"
	"liciel/internal/textdecode"
	"liciel/internal/xmlrows"
)

// Builder reads the tables of a Folder and assembles a Mission.
type Builder struct {
	decoder   *textdecode.Decoder
	extractor *xmlrows.Extractor
	engine    *reconcile.Engine
	projector synthesis.Projector
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDecoder sets the text decoder.
func WithDecoder(d *textdecode.Decoder) BuilderOption {
	return func(b *Builder) {
		if d != nil {
			b.decoder = d
		}
	}
}

// WithExtractor sets the row extractor.
func WithExtractor(e *xmlrows.Extractor) BuilderOption {
	return func(b *Builder) {
		if e != nil {
			b.extractor = e
		}
	}
}

// WithEngine sets the reconciliation engine.
func WithEngine(e *reconcile.Engine) BuilderOption {
	return func(b *Builder) {
		if e != nil {
			b.engine = e
		}
	}
}

// WithProjector sets the synthesis projector.
func WithProjector(p synthesis.Projector) BuilderOption {
	return func(b *Builder) { b.projector = p }
}

// WithMetrics records parsed files on m.
func WithMetrics(m *infrastructure.PipelineMetrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder returns a Builder with default components.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		decoder: textdecode.New(),
		engine:  reconcile.NewEngine(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.extractor == nil {
		b.extractor = xmlrows.NewExtractor(xmlrows.WithLogger(b.logger))
	}
	return b
}

// Build reads every table of f. Only the general-info table is required;
// unreadable optional tables are logged and left out.
func (b *Builder) Build(ctx context.Context, f Folder) (*Mission, error) {
	if !f.HasGeneralInfo() {
		return nil, ErrNoGeneralInfo
	}
	logger := infrastructure.WithMission(b.logger, f.ID)

	m := &Mission{
		ID:     f.ID,
		Label:  f.ID,
		Path:   f.Path,
		Tables: make(map[string][]xmlrows.Row),
		Media:  f.Media,
	}

	byRole := make(map[tables.Role][]xmlrows.Row)
	for _, t := range f.Tables {
		if t.Role == tables.RoleUnclassified {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, recovered, err := b.readTable(ctx, t)
		if err != nil {
			if t.Role == tables.RoleGeneralInfo {
				return nil, apierrors.NewParsingError("failed to read general info", err).
					WithContext("mission", f.ID).
					WithContext("file", t.Rel)
			}
			logger.WarnContext(ctx, "skipping unreadable table",
				slog.String("file", t.Rel),
				slog.String("error", err.Error()))
			continue
		}
		if recovered {
			m.Recovered = append(m.Recovered, t.FileInfo.Name)
		}
		m.Tables[t.Stem()] = append(m.Tables[t.Stem()], rows...)
		byRole[t.Role] = append(byRole[t.Role], rows...)
	}

	general := byRole[tables.RoleGeneralInfo]
	if len(general) == 0 {
		// the file exists but nothing could be recovered from it
		general = []xmlrows.Row{{}}
	}
	m.GeneralRaw = general[0]
	sources := []xmlrows.Row{m.GeneralRaw}
	if ag := byRole[tables.RoleAsbestosGeneral]; len(ag) > 0 {
		sources = append(sources, ag[0])
	}
	m.General = synthesis.ResolveGeneral(sources...)

	m.Conclusions = byRole[tables.RoleConclusions]
	m.DomainConclusions = byRole[tables.RoleDomainConclusions]
	if d := byRole[tables.RoleDescription]; len(d) > 0 {
		m.Description = d[0]
	}
	m.Photos = resolvePhotos(byRole[tables.RolePhotos], f.Media)

	m.Zones = b.engine.Reconcile(reconcile.Input{
		ZonePrefix: reconcile.GeneralZonePrefix(sources...),
		Materials:  byRole[tables.RoleMaterials],
		Samples:    byRole[tables.RoleSamples],
		Analyses:   byRole[tables.RoleLabAnalyses],
		Photos:     byRole[tables.RolePhotos],
	})
	m.Rows = b.projector.Project(m.General, m.Zones)
	m.Domains = DetectDomains(f, m)

	logger.DebugContext(ctx, "mission built",
		slog.Int("tables", len(m.Tables)),
		slog.Int("zones", len(m.Zones)),
		slog.Any("domains", m.Domains))
	infrastructure.AddSpanEvent(ctx, "mission.built",
		attribute.String("mission", m.ID),
		attribute.Int("zones", len(m.Zones)))
	return m, nil
}

func (b *Builder) readTable(ctx context.Context, t TableFile) ([]xmlrows.Row, bool, error) {
	text, err := b.decoder.ReadFile(t.Path)
	if err != nil {
		return nil, false, err
	}
	res := b.extractor.ExtractDocument(t.Rel, text, t.Hint)
	recovered := res.Kind == xmlrows.KindTextScan && len(res.Rows) > 0
	b.metrics.RecordFile(ctx, string(t.Role), recovered)
	return res.Rows, recovered, nil
}

var (
	photoKey     = reconcile.Synonyms{"Photo_Clef"}
	photoComment = reconcile.Synonyms{"Photo_Commentaire"}
)

// resolvePhotos reads the photo table and links each key to a media file
// of the same name, compared case-insensitively.
func resolvePhotos(rows []xmlrows.Row, media []MediaRef) []Photo {
	byName := make(map[string]int, len(media))
	for i, ref := range media {
		name := strings.ToLower(ref.Name)
		if _, ok := byName[name]; !ok {
			byName[name] = i
		}
	}

	var photos []Photo
	for _, row := range rows {
		key := photoKey.Resolve(row)
		if key == "" {
			continue
		}
		p := Photo{
			Key:      key,
			Comment:  photoComment.Resolve(row),
			FileName: PhotoFileName(key),
		}
		if i, ok := byName[strings.ToLower(p.FileName)]; ok {
			ref := media[i]
			p.Media = &ref
		}
		photos = append(photos, p)
	}
	return photos
}

// PhotoFileName returns the last path segment of a photo key. LICIEL
// writes keys with either separator.
func PhotoFileName(key string) string {
	if i := strings.LastIndexAny(key, `/\`); i >= 0 {
		return key[i+1:]
	}
	return key
}
