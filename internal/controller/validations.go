package controller

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/certs"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// ValidationFinder collects the certificate validation records that belong
// in the root zone.
type ValidationFinder struct {
	Log        logr.Logger
	RootDomain string
}

// Find returns a change for every pending DNS validation whose domain ends
// with the root domain and with none of the delegated subdomains. Delegated
// subdomains validate in their own zone.
func (f *ValidationFinder) Find(ctx context.Context, provider certs.Provider, subdomains []string) ([]dns.Change, error) {
	arns, err := provider.ListCertificates(ctx)
	if err != nil {
		return nil, &ProviderReadError{Op: "listing certificates", Err: err}
	}

	var changes []dns.Change
	for _, arn := range arns {
		cert, err := provider.Describe(ctx, arn)
		if err != nil {
			return nil, &ProviderReadError{Op: "describing certificate " + arn, Err: err}
		}

		for _, opt := range cert.ValidationOptions {
			if !opt.Actionable() {
				continue
			}
			if !f.promotable(opt.Domain, subdomains) {
				f.Log.V(1).Info("validation not for the root zone", "domain", opt.Domain, "certificate", arn)
				continue
			}
			c := dns.Change{
				Type:   opt.Record.Type,
				Name:   opt.Record.Name,
				Values: []string{opt.Record.Value},
				TTL:    dns.DelegationTTL,
			}
			if !containsChange(changes, c) {
				changes = append(changes, c)
			}
		}
	}

	return changes, nil
}

// promotable applies the literal suffix rule.
func (f *ValidationFinder) promotable(domain string, subdomains []string) bool {
	if !strings.HasSuffix(domain, f.RootDomain) {
		return false
	}
	for _, s := range subdomains {
		if strings.HasSuffix(domain, s) {
			return false
		}
	}
	return true
}
