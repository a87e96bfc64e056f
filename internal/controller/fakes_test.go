package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/certs"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/ports"
)

// fakeZones is an in-memory DNS provider. Upserts replace the record set
// keyed by type and name.
type fakeZones struct {
	mu          sync.Mutex
	zones       []dns.HostedZone
	nameServers map[string][]string
	listErr     error
	nsErr       error
	upsertErr   error

	upserts []dns.Change
	records map[string]dns.Change // zone id + key -> current record set
}

func (f *fakeZones) ListZones(context.Context) ([]dns.HostedZone, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.zones, nil
}

func (f *fakeZones) NameServers(_ context.Context, zoneID string) ([]string, error) {
	if f.nsErr != nil {
		return nil, f.nsErr
	}
	return f.nameServers[zoneID], nil
}

func (f *fakeZones) Upsert(_ context.Context, zoneID string, c dns.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.records == nil {
		f.records = make(map[string]dns.Change)
	}
	c.Values = slices.Clone(c.Values)
	f.upserts = append(f.upserts, c)
	f.records[zoneID+" "+c.Key()] = c
	return nil
}

func (f *fakeZones) snapshot() map[string]dns.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]dns.Change, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out
}

func (f *fakeZones) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

// fakeCerts serves fixed certificates.
type fakeCerts struct {
	certs       []certs.Certificate
	listErr     error
	describeErr error
}

func (f *fakeCerts) ListCertificates(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	arns := make([]string, 0, len(f.certs))
	for _, c := range f.certs {
		arns = append(arns, c.ARN)
	}
	return arns, nil
}

func (f *fakeCerts) Describe(_ context.Context, arn string) (certs.Certificate, error) {
	if f.describeErr != nil {
		return certs.Certificate{}, f.describeErr
	}
	for _, c := range f.certs {
		if c.ARN == arn {
			return c, nil
		}
	}
	return certs.Certificate{}, fmt.Errorf("certificate %s not found", arn)
}

// fakeOrg lists fixed organization members.
type fakeOrg struct {
	members []accounts.Member
	err     error
}

func (f *fakeOrg) ListMembers(context.Context) ([]accounts.Member, error) {
	return f.members, f.err
}

var errAccessDenied = errors.New("AccessDenied")

// fakeBroker hands out sessions per role and region. Roles without a
// session fail to assume.
type fakeBroker struct {
	mu       sync.Mutex
	sessions map[string]*ports.Session // "role|region"
	calls    []string
}

func (b *fakeBroker) set(role, region string, s *ports.Session) {
	if b.sessions == nil {
		b.sessions = make(map[string]*ports.Session)
	}
	b.sessions[role+"|"+region] = s
}

func (b *fakeBroker) Assume(_ context.Context, role, region string) (*ports.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, role+"|"+region)
	s, ok := b.sessions[role+"|"+region]
	if !ok {
		return nil, errAccessDenied
	}
	return s, nil
}

func dnsValidation(domain, name, value string) certs.ValidationOption {
	return certs.ValidationOption{
		Domain: domain,
		Method: certs.MethodDNS,
		Record: &certs.ResourceRecord{Type: "CNAME", Name: name, Value: value},
	}
}
