package ports

import (
	"context"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/certs"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// Session bundles the providers reachable with one set of credentials.
type Session struct {
	Zones        dns.Provider
	Certificates certs.Provider
	Organization accounts.OrganizationLister
}

// Broker produces sessions scoped to an assumed role. An empty role uses the
// ambient credentials; an empty region uses the default region.
type Broker interface {
	Assume(ctx context.Context, role, region string) (*Session, error)
}
