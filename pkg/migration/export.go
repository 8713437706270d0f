package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/refproxy/internal/obs"
	kafkaaudit "github.com/Ramsey-B/refproxy/pkg/kafka"
	"github.com/Ramsey-B/refproxy/pkg/codec"
	"github.com/Ramsey-B/refproxy/pkg/codec/diagram"
	"github.com/Ramsey-B/refproxy/pkg/codec/document"
	"github.com/Ramsey-B/refproxy/pkg/codec/tabular"
	"github.com/Ramsey-B/refproxy/pkg/fanout"
	"github.com/Ramsey-B/refproxy/pkg/metrics"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"
)

// ExportOptions carries C9's parameters, taken from the `GET /export`
// query string (spec §6).
type ExportOptions struct {
	TargetURL      string
	Format         codec.Format
	Enrich         bool
	Tree           bool
	DiagramDialect diagram.Dialect
	LookupConfig   refengine.LookupConfig
	RecordURLBase  string
}

// ExportResult is C9's output triple.
type ExportResult struct {
	Body        []byte
	ContentType string
	Filename    string
}

// Exporter implements C9, the Export Orchestrator.
type Exporter struct {
	client      *sourceapi.Client
	logger      ectologger.Logger
	audit       *kafkaaudit.Producer
	concurrency int
}

func NewExporter(client *sourceapi.Client, logger ectologger.Logger, audit *kafkaaudit.Producer) *Exporter {
	return &Exporter{client: client, logger: logger, audit: audit, concurrency: fanout.DefaultConcurrency}
}

// Export runs C9's five steps: fetch, optional enrich, optional nest,
// encode, and filename composition.
func (ex *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	start := time.Now()
	ctx, span := obs.StartSpan(ctx, "migration.Exporter.Export")
	defer span.End()

	base, resourceType := splitCollectionURL(opts.TargetURL)

	records, err := ex.client.List(ctx, opts.TargetURL)
	if err != nil {
		ex.finish(ctx, opts, start, false, 0)
		return nil, refengine.Newf(refengine.KindUpstreamUnavailable, "fetching records from %s: %v", opts.TargetURL, err)
	}

	if opts.Enrich && opts.Format == codec.FormatJSON {
		refengine.WithResourceTypeHint(records, resourceType)
		fetcher := func(ctx context.Context, fkResourceType, id string) (refengine.Record, error) {
			return ex.client.Get(ctx, base+"/"+fkResourceType, id)
		}
		enricher := refengine.NewEnricher(fetcher, opts.LookupConfig, ex.logger, ex.concurrency)
		enricher.Enrich(ctx, records)
		refengine.ClearResourceTypeHint(records)
	}

	c, ext, err := ex.selectCodec(opts, resourceType)
	if err != nil {
		ex.finish(ctx, opts, start, false, len(records))
		return nil, err
	}

	body, err := c.Encode(records)
	if err != nil {
		ex.finish(ctx, opts, start, false, len(records))
		return nil, refengine.Newf(refengine.KindDecodeError, "encoding export body: %v", err)
	}

	ex.finish(ctx, opts, start, true, len(records))

	filename := fmt.Sprintf("%s_export.%s", resourceType, ext)
	return &ExportResult{Body: body, ContentType: c.MediaType(), Filename: filename}, nil
}

func (ex *Exporter) selectCodec(opts ExportOptions, resourceType string) (codec.Codec, string, error) {
	switch opts.Format {
	case codec.FormatCSV:
		return tabular.New(), tabular.New().Extension(), nil
	case codec.FormatMermaid:
		dialect := opts.DiagramDialect
		if dialect == "" {
			dialect = diagram.DialectFlowchart
		}
		d := diagram.New(dialect, resourceType, opts.LookupConfig, time.Now().UTC().Format(time.RFC3339))
		d.RecordURLBase = opts.RecordURLBase
		return d, d.Extension(), nil
	case codec.FormatJSON, "":
		mode := document.ModeFlat
		if opts.Tree {
			mode = document.ModeNested
		}
		d := document.New(mode)
		return d, d.Extension(), nil
	default:
		return nil, "", refengine.Newf(refengine.KindDecodeError, "unknown export format %q", opts.Format)
	}
}

func (ex *Exporter) finish(ctx context.Context, opts ExportOptions, start time.Time, ok bool, n int) {
	status := "error"
	if ok {
		status = "success"
	}
	metrics.ExportRequestsTotal.WithLabelValues(string(opts.Format), status).Inc()

	if ex.audit == nil {
		return
	}
	evt := &kafkaaudit.AuditEvent{
		Type:        kafkaaudit.EventExportCompleted,
		TargetURL:   opts.TargetURL,
		Format:      string(opts.Format),
		RecordCount: n,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if !ok {
		evt.Type = kafkaaudit.EventExportFailed
	}
	if err := ex.audit.Publish(ctx, evt); err != nil {
		metrics.AuditEventsPublished.WithLabelValues(string(evt.Type), "error").Inc()
		ex.logger.WithContext(ctx).WithError(err).Warnf("failed to publish export audit event")
		return
	}
	metrics.AuditEventsPublished.WithLabelValues(string(evt.Type), "success").Inc()
}
