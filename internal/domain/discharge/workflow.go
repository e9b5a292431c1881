// Package discharge runs the pipeline that turns a completed tab into the
// printed discharge document: validate, persist, render, splice the scanned
// attachment, stamp the record and deliver the PDF.
package discharge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/record"
	"github.com/clinica/intake/internal/platform/blobstore"
	"github.com/clinica/intake/internal/platform/metrics"
	"github.com/clinica/intake/internal/platform/pdf"
)

// attachmentInsertAt is the zero-based page index where the scanned
// anesthesia protocol lands: right behind the rendered protocol cover page.
const attachmentInsertAt = 1

// Renderer composes the procedure document.
type Renderer interface {
	Render(tab record.TabID, rec record.PatientRecord, signer pdf.Signer, dischargedAt time.Time) ([]byte, int, error)
}

// Merger splices an external document into the rendered base.
type Merger interface {
	Merge(base []byte, insertAt int, external []byte) ([]byte, bool, error)
}

// Result is what the handler streams back to the client.
type Result struct {
	PDF          []byte
	FileName     string
	Merged       bool
	DischargedAt time.Time
	Warnings     []string
}

// Workflow orchestrates the discharge stages in fixed order. Failures in
// the leading stages abort the run; a stamp failure after the document is
// rendered only degrades (the document still ships, with a warning).
type Workflow struct {
	records     *record.Service
	attachments blobstore.Store
	renderer    Renderer
	merger      Merger
	collector   *metrics.Collector
	log         zerolog.Logger
	now         func() time.Time
}

func NewWorkflow(records *record.Service, attachments blobstore.Store, renderer Renderer, merger Merger, collector *metrics.Collector, log zerolog.Logger) *Workflow {
	return &Workflow{
		records:     records,
		attachments: attachments,
		renderer:    renderer,
		merger:      merger,
		collector:   collector,
		log:         log,
		now:         time.Now,
	}
}

// SetClock overrides the workflow clock. Tests only.
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }

// Run executes the discharge for one tab of one record. The submitted form
// is the tab's final state; it is validated and persisted before anything
// renders, so the printed document always matches the stored record.
func (w *Workflow) Run(ctx context.Context, dni string, tab record.TabID, form record.FormData, signer pdf.Signer) (*Result, error) {
	log := w.log.With().Str("dni", dni).Str("tab", string(tab)).Logger()

	// VALIDATE
	schema, ok := record.SchemaFor(tab)
	if !ok {
		return nil, &record.ValidationError{Field: "tab", Reason: fmt.Sprintf("pestaña desconocida: %s", tab)}
	}
	if err := w.validateRequired(schema, form); err != nil {
		w.count(tab, "validation_failed")
		return nil, err
	}
	log.Info().Msg("discharge: validated")

	// PERSIST
	doc, err := w.records.SaveTab(ctx, dni, tab, form)
	if err != nil {
		w.count(tab, "persist_failed")
		return nil, err
	}
	log.Info().Msg("discharge: persisted")

	// RENDER. A reprint inside the grace period keeps the original stamp,
	// so the printed date must come from the record when one exists.
	rec, _, err := w.records.Load(ctx, dni)
	if err != nil {
		w.count(tab, "render_failed")
		return nil, err
	}
	res := &Result{DischargedAt: w.now()}
	if ms := rec.DischargeMillis(); ms != nil {
		res.DischargedAt = time.UnixMilli(*ms)
	}
	base, pages, err := w.renderer.Render(tab, rec, signer, res.DischargedAt)
	if err != nil {
		w.count(tab, "render_failed")
		return nil, fmt.Errorf("render discharge document: %w", err)
	}
	if w.collector != nil {
		w.collector.PagesRenderedTotal.Add(float64(pages))
	}
	log.Info().Int("pages", pages).Msg("discharge: rendered")

	// MERGE: only the surgery+anesthesia document takes an attachment.
	res.PDF = base
	if tab == record.TabCirugiaAnestesia {
		res.PDF, res.Merged = w.mergeAttachment(ctx, log, dni, base, res)
	}

	// STAMP: set-if-absent; a failure here must not lose the document.
	if stamped, err := w.records.StampDischarge(ctx, dni); err != nil {
		log.Error().Err(err).Msg("discharge: stamp failed, delivering anyway")
		res.Warnings = append(res.Warnings, "el documento se generó pero el alta no quedó registrada; reintente el alta")
		w.count(tab, "stamp_failed")
	} else {
		res.DischargedAt = stamped
	}

	// DELIVER
	res.FileName = fileName(tab, doc, res.Merged)
	w.count(tab, "completed")
	log.Info().Str("file", res.FileName).Bool("merged", res.Merged).Msg("discharge: delivered")
	return res, nil
}

// validateRequired checks the schema's required fields on the submitted
// form before anything touches the store.
func (w *Workflow) validateRequired(schema *record.TabSchema, form record.FormData) error {
	for _, key := range schema.RequiredFields() {
		raw, ok := form.Fields[key]
		s, _ := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return &record.ValidationError{Field: key, Reason: fmt.Sprintf("el campo %s es obligatorio para el alta", key)}
		}
	}
	return nil
}

// mergeAttachment consumes the pending scanned protocol, if any, and
// splices it into the base. Every failure degrades to the base document.
func (w *Workflow) mergeAttachment(ctx context.Context, log zerolog.Logger, dni string, base []byte, res *Result) ([]byte, bool) {
	att, err := w.attachments.Take(ctx, dni)
	if errors.Is(err, blobstore.ErrNotFound) {
		log.Info().Msg("discharge: no attachment pending, skipping merge")
		return base, false
	}
	if err != nil {
		log.Error().Err(err).Msg("discharge: attachment fetch failed, delivering without it")
		res.Warnings = append(res.Warnings, "no se pudo recuperar el protocolo adjunto; el documento se generó sin él")
		w.degraded()
		return base, false
	}

	merged, spliced, err := w.merger.Merge(base, attachmentInsertAt, att.Data)
	if err != nil || !spliced {
		log.Warn().Err(err).Str("file", att.FileName).Msg("discharge: merge degraded to base document")
		res.Warnings = append(res.Warnings, "el protocolo adjunto no pudo incorporarse; el documento se generó sin él")
		w.degraded()
		return base, false
	}
	log.Info().Str("file", att.FileName).Msg("discharge: attachment merged")
	return merged, true
}

func (w *Workflow) count(tab record.TabID, outcome string) {
	if w.collector != nil {
		w.collector.DischargesTotal.WithLabelValues(string(tab), outcome).Inc()
	}
}

func (w *Workflow) degraded() {
	if w.collector != nil {
		w.collector.MergesDegradedTotal.Inc()
	}
}

// fileName builds the deterministic download name: tab, apellido and DNI,
// with an -adjunto marker when the scanned protocol was spliced in.
func fileName(tab record.TabID, doc record.TabDocument, merged bool) string {
	apellido := strings.ReplaceAll(strings.TrimSpace(doc.String("apellido")), " ", "-")
	name := fmt.Sprintf("%s-%s-%s", tab, apellido, doc.String("dni"))
	if merged {
		name += "-adjunto"
	}
	return name + ".pdf"
}
