package migration

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/Ramsey-B/refproxy/pkg/codec"
	"github.com/Ramsey-B/refproxy/pkg/codec/diagram"
	"github.com/Ramsey-B/refproxy/pkg/codec/document"
	"github.com/Ramsey-B/refproxy/pkg/codec/tabular"
	"github.com/Ramsey-B/refproxy/pkg/fanout"
	kafkaaudit "github.com/Ramsey-B/refproxy/pkg/kafka"
	"github.com/Ramsey-B/refproxy/pkg/metrics"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"
)

// ImportOptions carries C10's parameters, taken from the `POST /import`
// query string (spec §6).
type ImportOptions struct {
	TargetURL     string
	Format        codec.Format
	Body          []byte
	OnAmbiguous   refengine.Policy
	OnMissing     refengine.Policy
	DetectCycles  bool
	LookupConfig  refengine.LookupConfig
}

// Importer implements C10, the Import Orchestrator.
type Importer struct {
	client      *sourceapi.Client
	logger      ectologger.Logger
	audit       *kafkaaudit.Producer
	concurrency int
}

func NewImporter(client *sourceapi.Client, logger ectologger.Logger, audit *kafkaaudit.Producer) *Importer {
	return &Importer{client: client, logger: logger, audit: audit, concurrency: fanout.DefaultConcurrency}
}

// Import runs C10's phases: decode, prepare, iterate, strip+POST, report.
// records are processed strictly in order on the single logical task the
// request owns (spec §5); a fail-policy resolution error aborts the
// remainder of the batch but still returns the partial report.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (*Report, error) {
	start := time.Now()
	ctx, span := obs.StartSpan(ctx, "migration.Importer.Import")
	defer span.End()

	base, _ := splitCollectionURL(opts.TargetURL)

	c, err := im.selectCodec(opts)
	if err != nil {
		im.finish(ctx, opts, start, nil, false)
		return nil, err
	}

	records, err := c.Decode(opts.Body)
	if err != nil {
		im.finish(ctx, opts, start, nil, false)
		return nil, refengine.Newf(refengine.KindDecodeError, "decoding import body: %v", err)
	}

	for _, r := range records {
		if r.OriginalID() == "" {
			if id, ok := r[refengine.FieldID].(string); ok {
				r[refengine.FieldOriginalID] = id
			}
		}
	}

	rep := newReport(len(records))

	hasSelfFK := false
	for _, r := range records {
		if r.HasSelfFK() {
			hasSelfFK = true
			break
		}
	}
	if hasSelfFK {
		var cycleReport refengine.CycleReport
		records, cycleReport = refengine.TopoSort(records, opts.DetectCycles)
		if len(cycleReport.NodeIDs) > 0 {
			rep.CycleReport = &cycleReport
			rep.addWarning("cycle detected among records: " + joinIDs(cycleReport.NodeIDs))
			metrics.CycleDetectionsTotal.Inc()
		}
	}

	sessionMap := refengine.NewSessionIDMap()
	lookup := func(ctx context.Context, lookupResourceType, field string, value any) ([]refengine.Record, error) {
		return im.client.Filter(ctx, base+"/"+lookupResourceType, field, value)
	}
	resolver := refengine.NewResolver(lookup, sessionMap, opts.OnAmbiguous, opts.OnMissing, im.logger, im.concurrency)

	for i, r := range records {
		resolved, trace, resolveErr := resolver.ResolveRecord(ctx, r, i)
		rep.tallyTrace(trace)

		if resolveErr != nil {
			engErr, _ := refengine.IsEngineError(resolveErr)
			rep.addError(engErr.RecordIndex, string(engErr.Kind), engErr.Error())
			rep.Failed += len(records) - i
			im.finish(ctx, opts, start, rep, false)
			return rep.finish(start), resolveErr
		}

		toPost := resolved.StripReserved()
		created, postErr := im.client.Create(ctx, opts.TargetURL, toPost)
		if postErr != nil {
			idx := i
			rep.addError(&idx, string(refengine.KindUpstreamRejected), postErr.Error())
			rep.Failed++
			metrics.ImportRecordsTotal.WithLabelValues("failed").Inc()
			continue
		}

		newID, _ := created[refengine.FieldID].(string)
		originalID := r.OriginalID()
		if originalID != "" {
			sessionMap.Set(originalID, newID)
			rep.SessionIDMap[originalID] = newID
		}
		rep.Successful++
		metrics.ImportRecordsTotal.WithLabelValues("succeeded").Inc()
	}

	im.finish(ctx, opts, start, rep, true)
	return rep.finish(start), nil
}

func (im *Importer) selectCodec(opts ImportOptions) (codec.Codec, error) {
	switch opts.Format {
	case codec.FormatCSV:
		return tabular.New(), nil
	case codec.FormatMermaid:
		return diagram.New(diagram.DialectFlowchart, "", opts.LookupConfig, ""), nil
	case codec.FormatJSON, "":
		return document.New(document.ModeFlat), nil
	default:
		return nil, refengine.Newf(refengine.KindDecodeError, "unknown import format %q", opts.Format)
	}
}

func (im *Importer) finish(ctx context.Context, opts ImportOptions, start time.Time, rep *Report, ok bool) {
	status := "error"
	if ok {
		status = "success"
	}
	metrics.ImportRequestsTotal.WithLabelValues(string(opts.Format), status).Inc()

	if im.audit == nil {
		return
	}
	evt := &kafkaaudit.AuditEvent{
		Type:       kafkaaudit.EventImportCompleted,
		TargetURL:  opts.TargetURL,
		Format:     string(opts.Format),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if rep != nil {
		evt.RecordCount = rep.Total
		evt.SuccessCount = rep.Successful
		evt.FailureCount = rep.Failed
		evt.CycleDetected = rep.CycleReport != nil
	}
	if !ok {
		evt.Type = kafkaaudit.EventImportFailed
	}
	if err := im.audit.Publish(ctx, evt); err != nil {
		metrics.AuditEventsPublished.WithLabelValues(string(evt.Type), "error").Inc()
		im.logger.WithContext(ctx).WithError(err).Warnf("failed to publish import audit event")
		return
	}
	metrics.AuditEventsPublished.WithLabelValues(string(evt.Type), "success").Inc()
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
