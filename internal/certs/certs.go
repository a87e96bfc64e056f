// Package certs describes certificates and the DNS records that validate them.
package certs

import "context"

// Method is how a certificate authority validates control of a domain.
type Method string

const (
	MethodDNS   Method = "DNS"
	MethodEmail Method = "EMAIL"
	MethodHTTP  Method = "HTTP"
)

// ResourceRecord is the record the authority expects to find.
type ResourceRecord struct {
	Type  string
	Name  string
	Value string
}

// ValidationOption is the validation state of one domain on a certificate.
type ValidationOption struct {
	Domain string
	Method Method
	Record *ResourceRecord // nil until the authority has issued one
}

// Actionable reports whether the option can be satisfied by publishing a
// DNS record.
func (o ValidationOption) Actionable() bool {
	return o.Method == MethodDNS && o.Record != nil
}

// Certificate is a certificate and its per-domain validation options.
type Certificate struct {
	ARN               string
	ValidationOptions []ValidationOption
}

// Provider lists and describes certificates in one account and region.
type Provider interface {
	ListCertificates(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, arn string) (Certificate, error)
}
