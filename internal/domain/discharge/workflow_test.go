package discharge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/domain/record"
	"github.com/clinica/intake/internal/platform/blobstore"
	"github.com/clinica/intake/internal/platform/pdf"
)

type stubRenderer struct {
	calls      int
	fail       bool
	renderedAt time.Time
}

func (r *stubRenderer) Render(_ record.TabID, _ record.PatientRecord, _ pdf.Signer, dischargedAt time.Time) ([]byte, int, error) {
	r.calls++
	r.renderedAt = dischargedAt
	if r.fail {
		return nil, 0, errors.New("render exploded")
	}
	return []byte("%PDF-base"), 3, nil
}

type stubMerger struct {
	calls    int
	fail     bool
	insertAt int
}

func (m *stubMerger) Merge(base []byte, insertAt int, external []byte) ([]byte, bool, error) {
	m.calls++
	m.insertAt = insertAt
	if m.fail {
		return base, false, pdf.ErrMerge
	}
	return append([]byte("%PDF-merged:"), external...), true, nil
}

type fixture struct {
	workflow *Workflow
	records  *record.Service
	repo     record.Repository
	store    blobstore.Store
	renderer *stubRenderer
	merger   *stubMerger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := record.NewRepoMem()
	svc := record.NewService(repo, zerolog.Nop())
	store := blobstore.NewMemStore()
	renderer := &stubRenderer{}
	merger := &stubMerger{}
	w := NewWorkflow(svc, store, renderer, merger, nil, zerolog.Nop())
	return &fixture{workflow: w, records: svc, repo: repo, store: store, renderer: renderer, merger: merger}
}

func signer() pdf.Signer {
	return pdf.Signer{Role: access.RoleMedico, Nombre: "Julián", Apellido: "Ramírez"}
}

func validForm(dni string) record.FormData {
	return record.FormData{Fields: map[string]any{
		"dni": dni, "apellido": "Pereyra", "nombres": "Marta",
	}}
}

func TestRun_ValidationAbortsBeforePersist(t *testing.T) {
	f := newFixture(t)
	form := validForm("30123456")
	form.Fields["apellido"] = "  "

	_, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, form, signer())
	if !record.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.renderer.calls != 0 {
		t.Error("render ran after failed validation")
	}
	if _, err := f.repo.Get(context.Background(), "30123456"); !errors.Is(err, record.ErrNotFound) {
		t.Error("record persisted despite failed validation")
	}
}

func TestRun_HappyPathStampsAndNames(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC)
	f.workflow.SetClock(func() time.Time { return now })
	f.records.SetClock(func() time.Time { return now })

	res, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FileName != "hemodinamia-Pereyra-30123456.pdf" {
		t.Errorf("file name = %q", res.FileName)
	}
	if res.Merged {
		t.Error("hemodinamia must never merge")
	}
	if f.merger.calls != 0 {
		t.Error("merge ran for a non-anesthesia procedure")
	}
	if !res.DischargedAt.Equal(now) {
		t.Errorf("discharged at = %v", res.DischargedAt)
	}

	rec, err := f.repo.Get(context.Background(), "30123456")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ms := rec.DischargeMillis(); ms == nil || *ms != now.UnixMilli() {
		t.Errorf("stamp = %v", ms)
	}
}

func TestRun_SecondDischargeKeepsOriginalStamp(t *testing.T) {
	f := newFixture(t)
	first := time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC)
	f.workflow.SetClock(func() time.Time { return first })
	f.records.SetClock(func() time.Time { return first })
	if _, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Reprint two hours later, still inside the grace period.
	later := first.Add(2 * time.Hour)
	f.workflow.SetClock(func() time.Time { return later })
	f.records.SetClock(func() time.Time { return later })
	res, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.DischargedAt.Equal(first) {
		t.Errorf("reprint moved the stamp: %v", res.DischargedAt)
	}
	// The reprinted summary page must carry the original discharge date,
	// not the reprint time.
	if !f.renderer.renderedAt.Equal(first) {
		t.Errorf("reprint rendered date %v, want original stamp %v", f.renderer.renderedAt, first)
	}
}

func TestRun_LockedRecordAborts(t *testing.T) {
	f := newFixture(t)
	first := time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC)
	f.workflow.SetClock(func() time.Time { return first })
	f.records.SetClock(func() time.Time { return first })
	if _, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	later := first.Add(25 * time.Hour)
	f.workflow.SetClock(func() time.Time { return later })
	f.records.SetClock(func() time.Time { return later })
	_, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer())
	if !errors.Is(err, record.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func putAttachment(t *testing.T, store blobstore.Store, dni string) {
	t.Helper()
	err := store.Put(context.Background(), &blobstore.Attachment{
		ID: uuid.New(), DNI: dni, FileName: "protocolo.pdf", Data: []byte("%PDF-externo"),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestRun_AnesthesiaMergesAndConsumesAttachment(t *testing.T) {
	f := newFixture(t)
	putAttachment(t, f.store, "30123456")

	res, err := f.workflow.Run(context.Background(), "30123456", record.TabCirugiaAnestesia, validForm("30123456"), signer())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Merged {
		t.Error("expected merged document")
	}
	if f.merger.insertAt != attachmentInsertAt {
		t.Errorf("insertAt = %d, want %d", f.merger.insertAt, attachmentInsertAt)
	}
	if res.FileName != "cirugia-anestesia-Pereyra-30123456-adjunto.pdf" {
		t.Errorf("file name = %q", res.FileName)
	}
	if _, err := f.store.Get(context.Background(), "30123456"); !errors.Is(err, blobstore.ErrNotFound) {
		t.Error("attachment was not consumed")
	}
}

func TestRun_AnesthesiaWithoutAttachmentSkipsMerge(t *testing.T) {
	f := newFixture(t)
	res, err := f.workflow.Run(context.Background(), "30123456", record.TabCirugiaAnestesia, validForm("30123456"), signer())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Merged || f.merger.calls != 0 {
		t.Error("merge must be skipped with no attachment pending")
	}
	if res.FileName != "cirugia-anestesia-Pereyra-30123456.pdf" {
		t.Errorf("file name = %q", res.FileName)
	}
}

func TestRun_MergeFailureDegradesWithWarning(t *testing.T) {
	f := newFixture(t)
	f.merger.fail = true
	putAttachment(t, f.store, "30123456")

	res, err := f.workflow.Run(context.Background(), "30123456", record.TabCirugiaAnestesia, validForm("30123456"), signer())
	if err != nil {
		t.Fatalf("merge failure must not fail the workflow: %v", err)
	}
	if res.Merged {
		t.Error("degraded run must report merged=false")
	}
	if string(res.PDF) != "%PDF-base" {
		t.Error("degraded run must deliver the base document")
	}
	if len(res.Warnings) == 0 {
		t.Error("degraded run must carry a warning")
	}

	// The record still gets stamped: the discharge happened.
	rec, err := f.repo.Get(context.Background(), "30123456")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DischargeMillis() == nil {
		t.Error("stamp missing after degraded merge")
	}
}

func TestRun_RenderFailureAbortsBeforeStamp(t *testing.T) {
	f := newFixture(t)
	f.renderer.fail = true

	_, err := f.workflow.Run(context.Background(), "30123456", record.TabHemodinamia, validForm("30123456"), signer())
	if err == nil {
		t.Fatal("expected render error")
	}

	rec, err := f.repo.Get(context.Background(), "30123456")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DischargeMillis() != nil {
		t.Error("record stamped despite failed render")
	}
}
