package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/ports"
)

const (
	// DefaultInterval is the pause between two reconciliation cycles.
	DefaultInterval = 5 * time.Minute

	// After a discovery failure the next cycle starts between
	// DiscoveryBackoff and DiscoveryBackoff*(1+DiscoveryJitter) later.
	DiscoveryBackoff = time.Minute
	DiscoveryJitter  = 4.0
)

// Reconciler promotes subordinate account zones and certificate validations
// into the root zone.
type Reconciler struct {
	Broker     ports.Broker
	Discoverer accounts.Discoverer
	Log        logr.Logger
	Metrics    *Metrics     // optional
	Tracer     trace.Tracer // defaults to the global tracer provider
	Clock      clock.Clock  // defaults to the real clock

	RootDomain string
	RootRole   string
	Regions    []string // certificate regions; empty means the default region

	// RequireEnvironment skips accounts without an environment label, as
	// is the case for organization discovery.
	RequireEnvironment bool

	DryRun      bool
	Once        bool
	Interval    time.Duration
	Concurrency int

	ready atomic.Bool
}

// Run reconciles until ctx is cancelled, a configuration error occurs, or
// after the first cycle when Once is set.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		err := r.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return err
		}
		if r.Once {
			return err
		}

		delay := r.Interval
		if delay <= 0 {
			delay = DefaultInterval
		}
		var discErr *DiscoveryError
		switch {
		case errors.As(err, &discErr):
			delay = wait.Jitter(DiscoveryBackoff, DiscoveryJitter)
			r.Log.Error(err, "account discovery failed", "retryIn", delay.String())
		case err != nil:
			r.Log.Error(err, "reconciliation cycle failed", "retryIn", delay.String())
		default:
			r.Log.V(1).Info("sleeping until next cycle", "interval", delay.String())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-r.clock().After(delay):
		}
	}
}

// RunOnce performs a single reconciliation cycle. Per account failures are
// logged and never returned.
func (r *Reconciler) RunOnce(ctx context.Context) (err error) {
	start := r.clock().Now()
	ctx, span := r.tracer().Start(ctx, "reconcile", trace.WithAttributes(
		attribute.String("root.domain", r.RootDomain),
		attribute.Bool("dry_run", r.DryRun),
	))
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.Metrics.observeCycle(result, r.clock().Since(start).Seconds())
	}()

	root, err := r.Broker.Assume(ctx, r.RootRole, "")
	if err != nil {
		return &DiscoveryError{Err: &CredentialError{Role: r.RootRole, Err: err}}
	}
	if r.RootRole != "" {
		r.Log.Info("using root role", "role", r.RootRole)
	}

	accts, err := r.Discoverer.Discover(ctx, root.Organization)
	if err != nil {
		return &DiscoveryError{Err: err}
	}
	r.Log.V(1).Info("discovered accounts", "count", len(accts))

	zoneID, err := r.resolveRootZone(ctx, root.Zones)
	if err != nil {
		return err
	}
	r.Log.Info("found root domain zone id", "id", zoneID)

	applier := &Applier{
		Log:     r.Log.WithName("applier"),
		DryRun:  r.DryRun,
		Metrics: r.Metrics,
	}
	w := &accountWorker{
		r:       r,
		root:    root.Zones,
		zoneID:  zoneID,
		zones:   &ZoneSync{Log: r.Log.WithName("zones"), RootDomain: r.RootDomain},
		finder:  &ValidationFinder{Log: r.Log.WithName("validations"), RootDomain: r.RootDomain},
		applier: applier,
	}

	var g errgroup.Group
	g.SetLimit(max(r.Concurrency, 1))
	for _, acct := range accts {
		g.Go(func() error {
			w.reconcile(ctx, acct)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.ready.Store(true)
	r.Metrics.markSuccess(float64(r.clock().Now().Unix()))
	r.Log.Info("reconciliation cycle complete",
		"accounts", len(accts),
		"skipped", w.skipped.Load(),
		"failed", w.failed.Load(),
		"changes", w.changes.Load(),
	)
	return nil
}

// Ready is a health checker that passes once a cycle has completed.
func (r *Reconciler) Ready(_ *http.Request) error {
	if !r.ready.Load() {
		return errors.New("no reconciliation cycle completed yet")
	}
	return nil
}

// resolveRootZone finds the public zone named after the root domain. Without
// an exact match the first public zone whose name starts with the root
// domain is used. Route 53 lists zones in reversed label order, so
// "example.com.au." sorts before "example.com.".
func (r *Reconciler) resolveRootZone(ctx context.Context, zones dns.Provider) (string, error) {
	list, err := zones.ListZones(ctx)
	if err != nil {
		return "", &ProviderReadError{Op: "listing root hosted zones", Err: err}
	}

	fqdn := dns.Fqdn(r.RootDomain)
	fallback := ""
	for _, z := range list {
		if z.Private {
			continue
		}
		if strings.EqualFold(z.Name, fqdn) {
			return z.ID, nil
		}
		if fallback == "" && strings.HasPrefix(z.Name, r.RootDomain) {
			fallback = z.ID
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", &ConfigurationError{Reason: "resolving zone for " + r.RootDomain, Err: ErrRootZoneNotFound}
}

func (r *Reconciler) regions() []string {
	if len(r.Regions) == 0 {
		return []string{""}
	}
	return r.Regions
}

func (r *Reconciler) clock() clock.Clock {
	if r.Clock == nil {
		return clock.RealClock{}
	}
	return r.Clock
}

func (r *Reconciler) tracer() trace.Tracer {
	if r.Tracer == nil {
		return otel.Tracer("github.com/yuriy-kovalchuk/yk-dns-promoter/internal/controller")
	}
	return r.Tracer
}

// accountWorker holds the per cycle state shared by account reconciliations.
type accountWorker struct {
	r       *Reconciler
	root    dns.Provider
	zoneID  string
	zones   *ZoneSync
	finder  *ValidationFinder
	applier *Applier

	skipped, failed, changes atomic.Int64
}

// reconcile promotes one account and contains its failures.
func (w *accountWorker) reconcile(ctx context.Context, acct accounts.Account) {
	log := w.r.Log.WithValues("account", acct.ID, "role", acct.Role)
	ctx, span := w.r.tracer().Start(ctx, "account", trace.WithAttributes(
		attribute.String("account.id", acct.ID),
		attribute.String("account.environment", acct.Environment),
	))
	defer span.End()

	if w.r.RequireEnvironment && acct.Environment == "" {
		log.V(1).Info("account has no environment tag, skipping")
		w.skipped.Add(1)
		return
	}

	err := w.promote(ctx, log, acct)
	if err == nil {
		return
	}

	var credErr *CredentialError
	if errors.As(err, &credErr) {
		log.V(1).Info("role not assumable, skipping account", "reason", err.Error())
		w.skipped.Add(1)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error(err, "abandoning account for this cycle")
	w.failed.Add(1)
	w.r.Metrics.accountError(stage(err))
}

// promote delegates the account's zones, then publishes the validations of
// its certificates in every region.
func (w *accountWorker) promote(ctx context.Context, log logr.Logger, acct accounts.Account) error {
	sess, err := w.r.Broker.Assume(ctx, acct.Role, "")
	if err != nil {
		return &CredentialError{Role: acct.Role, Err: err}
	}

	subdomains, delegations, err := w.zones.Sync(ctx, sess.Zones, acct)
	if err != nil {
		return err
	}
	log.V(1).Info("computed delegations", "subdomains", subdomains, "changes", len(delegations))
	if err := w.apply(ctx, delegations); err != nil {
		return err
	}

	for _, region := range w.r.regions() {
		rs := sess
		if region != "" {
			if rs, err = w.r.Broker.Assume(ctx, acct.Role, region); err != nil {
				return &CredentialError{Role: acct.Role, Err: err}
			}
		}

		validations, err := w.finder.Find(ctx, rs.Certificates, subdomains)
		if err != nil {
			return fmt.Errorf("region %q: %w", region, err)
		}
		log.V(1).Info("computed validations", "region", region, "changes", len(validations))
		if err := w.apply(ctx, validations); err != nil {
			return err
		}
	}
	return nil
}

func (w *accountWorker) apply(ctx context.Context, changes []dns.Change) error {
	if len(changes) == 0 {
		return nil
	}
	if err := w.applier.Apply(ctx, w.root, w.zoneID, changes); err != nil {
		return err
	}
	w.changes.Add(int64(len(changes)))
	return nil
}

// stage labels an account failure for metrics.
func stage(err error) string {
	var readErr *ProviderReadError
	var applyErr *ApplyError
	switch {
	case errors.As(err, &applyErr):
		return "apply"
	case errors.As(err, &readErr):
		return "read"
	default:
		return "other"
	}
}
