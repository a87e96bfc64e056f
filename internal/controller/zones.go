package controller

import (
	"context"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// ZoneSync computes the NS delegations an account's zones need in the root
// zone.
type ZoneSync struct {
	Log        logr.Logger
	RootDomain string
}

// Sync returns the sorted bare names of the account's delegated zones and the NS
// changes delegating them. Accounts with an environment only delegate the
// zone named after it; accounts without one delegate every public zone.
func (s *ZoneSync) Sync(ctx context.Context, zones dns.Provider, acct accounts.Account) ([]string, []dns.Change, error) {
	log := s.Log.WithValues("account", acct.ID)

	list, err := zones.ListZones(ctx)
	if err != nil {
		return nil, nil, &ProviderReadError{Op: "listing hosted zones", Err: err}
	}

	var expected string
	if acct.Environment != "" {
		expected = dns.SubdomainZone(acct.Environment, s.RootDomain)
	}

	subdomains := sets.New[string]()
	var changes []dns.Change
	for _, zone := range list {
		if zone.Private {
			log.V(1).Info("skipping private zone", "zone", zone.Name, "id", zone.ID)
			continue
		}
		if expected != "" && zone.Name != expected {
			log.Info("zone does not match account environment, skipping", "zone", zone.Name, "expected", expected)
			continue
		}

		subdomains.Insert(dns.TrimDot(zone.Name))

		nameServers, err := zones.NameServers(ctx, zone.ID)
		if err != nil {
			return nil, nil, &ProviderReadError{Op: "getting delegation set of " + zone.Name, Err: err}
		}
		if len(nameServers) == 0 {
			log.Info("zone has no name servers, not delegating", "zone", zone.Name, "id", zone.ID)
			continue
		}

		changes = append(changes, dns.NewDelegation(zone.Name, nameServers))
	}

	return sets.List(subdomains), changes, nil
}
