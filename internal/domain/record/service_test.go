package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/platform/metrics"
)

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo := NewRepoMem()
	svc := NewService(repo, zerolog.Nop())
	return svc, repo
}

func saveHemo(t *testing.T, svc *Service, dni string) {
	t.Helper()
	form := FormData{Fields: map[string]any{
		"dni": dni, "apellido": "Suárez", "nombres": "Elena",
	}}
	if _, err := svc.SaveTab(context.Background(), dni, TabHemodinamia, form); err != nil {
		t.Fatalf("SaveTab: %v", err)
	}
}

func TestSaveTab_PreservesSiblingTabs(t *testing.T) {
	svc, _ := newTestService(t)
	dni := "27555111"
	saveHemo(t, svc, dni)

	form := FormData{Fields: map[string]any{
		"dni": dni, "apellido": "Suárez", "nombres": "Elena", "estudio": "VEDA",
	}}
	if _, err := svc.SaveTab(context.Background(), dni, TabEndoscopia, form); err != nil {
		t.Fatalf("SaveTab: %v", err)
	}

	rec, _, err := svc.Load(context.Background(), dni)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Tab(TabHemodinamia).String("apellido") != "Suárez" {
		t.Error("saving one tab clobbered a sibling tab")
	}
	if rec.Tab(TabEndoscopia).String("estudio") != "VEDA" {
		t.Error("second tab not stored")
	}
}

func TestSaveTab_DNIMismatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	form := FormData{Fields: map[string]any{
		"dni": "11111111", "apellido": "X", "nombres": "Y",
	}}
	_, err := svc.SaveTab(context.Background(), "22222222", TabHemodinamia, form)
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSaveTab_LockedRecordRejected(t *testing.T) {
	svc, _ := newTestService(t)
	dni := "30777333"
	saveHemo(t, svc, dni)

	base := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return base })
	if _, err := svc.StampDischarge(context.Background(), dni); err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}

	// Inside the grace period edits still pass.
	svc.SetClock(func() time.Time { return base.Add(23 * time.Hour) })
	saveHemo(t, svc, dni)

	svc.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	form := FormData{Fields: map[string]any{"dni": dni, "apellido": "S", "nombres": "E"}}
	if _, err := svc.SaveTab(context.Background(), dni, TabHemodinamia, form); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestStampDischarge_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	dni := "26000444"
	saveHemo(t, svc, dni)

	first := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return first })
	t1, err := svc.StampDischarge(context.Background(), dni)
	if err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}

	svc.SetClock(func() time.Time { return first.Add(2 * time.Hour) })
	t2, err := svc.StampDischarge(context.Background(), dni)
	if err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}
	if !t1.Equal(t2) {
		t.Errorf("second stamp moved the timestamp: %v vs %v", t1, t2)
	}
}

func TestUpsert_PreservesDischargeStamp(t *testing.T) {
	svc, repo := newTestService(t)
	dni := "24333222"
	saveHemo(t, svc, dni)

	stamp := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return stamp })
	if _, err := svc.StampDischarge(context.Background(), dni); err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}

	// A save inside the grace period must not drop the stamp even though the
	// caller-supplied record carries none.
	svc.SetClock(func() time.Time { return stamp.Add(time.Hour) })
	saveHemo(t, svc, dni)

	rec, err := repo.Get(context.Background(), dni)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ms := rec.DischargeMillis()
	if ms == nil || *ms != stamp.UnixMilli() {
		t.Errorf("stamp lost or moved: %v", ms)
	}
}

func TestLock_UnknownDNIIsUnlocked(t *testing.T) {
	svc, _ := newTestService(t)
	st, err := svc.Lock(context.Background(), "99999999")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if st.Locked || st.DischargedAt != nil {
		t.Errorf("unknown DNI should be unlocked zero state, got %+v", st)
	}
}

func TestLockState_BannerAfterExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	dni := "23111000"
	saveHemo(t, svc, dni)

	stamp := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return stamp })
	if _, err := svc.StampDischarge(context.Background(), dni); err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}

	svc.SetClock(func() time.Time { return stamp.Add(access.GracePeriod + time.Minute) })
	st, err := svc.Lock(context.Background(), dni)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !st.Locked {
		t.Fatal("expected locked state")
	}
	if st.Banner() == "" {
		t.Error("locked state should carry a banner")
	}
}

func TestExportImport_StripsStampAndScansDNI(t *testing.T) {
	svc, _ := newTestService(t)
	dni := "20654321"
	saveHemo(t, svc, dni)
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC) })
	if _, err := svc.StampDischarge(context.Background(), dni); err != nil {
		t.Fatalf("StampDischarge: %v", err)
	}

	data, err := svc.Export(context.Background(), dni)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Import into a fresh store: the DNI comes from the document, the stamp
	// must not survive.
	svc2, repo2 := newTestService(t)
	imported, err := svc2.Import(context.Background(), data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported != dni {
		t.Errorf("scanned DNI = %q, want %q", imported, dni)
	}
	rec, err := repo2.Get(context.Background(), dni)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DischargeMillis() != nil {
		t.Error("imported record must not carry a discharge stamp")
	}
}

func TestImport_NoDNIRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(context.Background(), []byte(`{"hemodinamia":{"apellido":"X"}}`))
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestImport_MalformedRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(context.Background(), []byte(`not json`))
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestServiceCounters(t *testing.T) {
	svc, _ := newTestService(t)
	collector := metrics.NewCollector("record_service_test")
	svc.SetMetrics(collector)

	saveHemo(t, svc, "30123456")
	saveHemo(t, svc, "30123456")
	if got := testutil.ToFloat64(collector.RecordSavesTotal); got != 2 {
		t.Errorf("saves counter = %v, want 2", got)
	}

	data, err := svc.Export(context.Background(), "30123456")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := svc.Import(context.Background(), data); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := testutil.ToFloat64(collector.RecordsImportedTotal); got != 1 {
		t.Errorf("imports counter = %v, want 1", got)
	}
}
