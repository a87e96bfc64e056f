package dns

import (
	"slices"
	"strings"
)

// TrimDot strips the trailing root label from a name.
// e.g. "prod.example.com." → "prod.example.com"
func TrimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}

// Fqdn returns name with a single trailing dot.
func Fqdn(name string) string {
	return TrimDot(name) + "."
}

// SubdomainZone returns the zone name an environment is expected to own
// under the root domain.
// e.g. ("prod", "example.com") → "prod.example.com."
func SubdomainZone(environment, rootDomain string) string {
	return environment + "." + Fqdn(rootDomain)
}

// NewDelegation builds the NS change delegating zoneName to nameServers.
func NewDelegation(zoneName string, nameServers []string) Change {
	return Change{
		Type:   TypeNS,
		Name:   zoneName,
		Values: slices.Clone(nameServers),
		TTL:    DelegationTTL,
	}
}

// Key identifies the record set a change writes to.
func (c Change) Key() string {
	return strings.ToUpper(c.Type) + " " + strings.ToLower(Fqdn(c.Name))
}

// Equal reports whether both changes write the same record set with the
// same values.
func (c Change) Equal(o Change) bool {
	return c.Key() == o.Key() && c.TTL == o.TTL && slices.Equal(c.Values, o.Values)
}
