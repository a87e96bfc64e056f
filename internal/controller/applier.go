package controller

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// Applier upserts changes into the root zone, one at a time.
type Applier struct {
	Log     logr.Logger
	DryRun  bool
	Metrics *Metrics

	// mu serializes root zone writes across account workers.
	mu sync.Mutex
}

// Apply upserts every change into zoneID. The first failure is returned as an
// *ApplyError and the remaining changes are not attempted. In dry-run mode
// nothing is written.
func (a *Applier) Apply(ctx context.Context, root dns.Provider, zoneID string, changes []dns.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var applied []dns.Change
	for _, c := range changes {
		if containsChange(applied, c) {
			continue
		}

		if a.DryRun {
			a.Log.Info("would upsert record", "zone", zoneID, "name", c.Name, "type", c.Type, "values", c.Values, "ttl", c.TTL)
		} else {
			if err := root.Upsert(ctx, zoneID, c); err != nil {
				return &ApplyError{Type: c.Type, Name: c.Name, Err: err}
			}
			a.Log.Info("upserted record", "name", c.Name, "type", c.Type, "values", c.Values)
		}
		a.Metrics.upserted(c.Type, a.DryRun)
		applied = append(applied, c)
	}
	return nil
}

func containsChange(changes []dns.Change, c dns.Change) bool {
	for _, existing := range changes {
		if existing.Equal(c) {
			return true
		}
	}
	return false
}
