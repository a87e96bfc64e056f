package controller

import (
	"context"
	"errors"
	"testing"

	logrtesting "github.com/go-logr/logr/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

var (
	nsChange   = dns.NewDelegation("prod.example.com.", []string{"ns-1.aws.com", "ns-2.aws.com"})
	acmeChange = dns.Change{Type: "CNAME", Name: "_acme.example.com.", Values: []string{"token.acm-validations.aws."}, TTL: 86400}
)

func TestApplier_Idempotent(t *testing.T) {
	root := &fakeZones{}
	a := &Applier{Log: logrtesting.NewTestLogger(t)}
	ctx := context.Background()

	if err := a.Apply(ctx, root, "ROOT", []dns.Change{nsChange, acmeChange}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	once := root.snapshot()

	if err := a.Apply(ctx, root, "ROOT", []dns.Change{nsChange, acmeChange}); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if diff := cmp.Diff(once, root.snapshot()); diff != "" {
		t.Errorf("zone content changed on re-apply (-once +twice):\n%s", diff)
	}
}

func TestApplier_ReplacesValues(t *testing.T) {
	root := &fakeZones{}
	a := &Applier{Log: logrtesting.NewTestLogger(t)}
	ctx := context.Background()

	if err := a.Apply(ctx, root, "ROOT", []dns.Change{nsChange}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	moved := dns.NewDelegation("prod.example.com.", []string{"ns-9.aws.com"})
	if err := a.Apply(ctx, root, "ROOT", []dns.Change{moved}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := root.snapshot()["ROOT "+nsChange.Key()]
	if diff := cmp.Diff([]string{"ns-9.aws.com"}, got.Values); diff != "" {
		t.Errorf("expected values to be replaced (-want +got):\n%s", diff)
	}
}

func TestApplier_DryRun(t *testing.T) {
	root := &fakeZones{}
	m := NewMetrics(prometheus.NewRegistry())
	a := &Applier{Log: logrtesting.NewTestLogger(t), DryRun: true, Metrics: m}

	if err := a.Apply(context.Background(), root, "ROOT", []dns.Change{nsChange, acmeChange}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.upsertCount() != 0 {
		t.Errorf("expected no upserts in dry-run, got %d", root.upsertCount())
	}
	if got := testutil.ToFloat64(m.Upserts.WithLabelValues("NS", "true")); got != 1 {
		t.Errorf("expected 1 dry-run NS upsert metric, got %v", got)
	}
}

func TestApplier_SkipsDuplicatesInBatch(t *testing.T) {
	root := &fakeZones{}
	a := &Applier{Log: logrtesting.NewTestLogger(t)}

	if err := a.Apply(context.Background(), root, "ROOT", []dns.Change{acmeChange, acmeChange, nsChange}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.upsertCount() != 2 {
		t.Errorf("expected 2 upserts, got %d", root.upsertCount())
	}
}

func TestApplier_StopsOnFirstFailure(t *testing.T) {
	root := &fakeZones{upsertErr: errAccessDenied}
	a := &Applier{Log: logrtesting.NewTestLogger(t)}

	err := a.Apply(context.Background(), root, "ROOT", []dns.Change{nsChange, acmeChange})
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected ApplyError, got %v", err)
	}
	if applyErr.Name != "prod.example.com." || applyErr.Type != "NS" {
		t.Errorf("expected failure on the first change, got %s %s", applyErr.Type, applyErr.Name)
	}
	if !errors.Is(err, errAccessDenied) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}
