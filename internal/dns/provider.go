package dns

import "context"

// DelegationTTL is the TTL of every record written to the root zone.
const DelegationTTL int64 = 86400

// TypeNS is the record type used for subdomain delegation.
const TypeNS = "NS"

// HostedZone is a read-only view of a provider's hosted zone.
type HostedZone struct {
	ID      string // provider zone id, e.g. "/hostedzone/Z123"
	Name    string // FQDN with trailing dot
	Private bool
}

// Change is a record set to upsert into the root zone. Values replace the
// record set's current values.
type Change struct {
	Type   string   // "NS", "CNAME", ...
	Name   string   // FQDN, e.g. "prod.example.com."
	Values []string // record values in provider order
	TTL    int64
}

// Provider is the interface that DNS providers must implement.
type Provider interface {
	ListZones(ctx context.Context) ([]HostedZone, error)
	NameServers(ctx context.Context, zoneID string) ([]string, error)
	Upsert(ctx context.Context, zoneID string, change Change) error
}
