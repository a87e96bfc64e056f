package acm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/certs"
)

// API is the subset of the ACM client used by Provider.
type API interface {
	acm.ListCertificatesAPIClient
	DescribeCertificate(ctx context.Context, params *acm.DescribeCertificateInput, optFns ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
}

// Provider implements certs.Provider for AWS Certificate Manager.
type Provider struct {
	api API
	log logr.Logger
}

// New creates an ACM provider over the given API client.
func New(log logr.Logger, api API) *Provider {
	return &Provider{api: api, log: log}
}

// NewFromConfig creates an ACM provider for the region and credentials in cfg.
func NewFromConfig(log logr.Logger, cfg aws.Config) *Provider {
	return New(log, acm.NewFromConfig(cfg))
}

// ListCertificates returns the ARN of every certificate in the region.
// ACM only lists RSA_2048 certificates unless key types are requested
// explicitly, so every known key type is included.
func (p *Provider) ListCertificates(ctx context.Context) ([]string, error) {
	var arns []string

	pages := acm.NewListCertificatesPaginator(p.api, &acm.ListCertificatesInput{
		Includes: &types.Filters{KeyTypes: types.KeyAlgorithm("").Values()},
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("acm: list certificates: %w", err)
		}
		for _, c := range page.CertificateSummaryList {
			arns = append(arns, aws.ToString(c.CertificateArn))
		}
	}

	p.log.V(1).Info("listed certificates", "count", len(arns))
	return arns, nil
}

// Describe fetches the validation options of a certificate.
func (p *Provider) Describe(ctx context.Context, arn string) (certs.Certificate, error) {
	out, err := p.api.DescribeCertificate(ctx, &acm.DescribeCertificateInput{CertificateArn: aws.String(arn)})
	if err != nil {
		return certs.Certificate{}, fmt.Errorf("acm: describe certificate %s: %w", arn, err)
	}

	cert := certs.Certificate{ARN: arn}
	if out.Certificate == nil {
		return cert, nil
	}
	for _, dv := range out.Certificate.DomainValidationOptions {
		opt := certs.ValidationOption{
			Domain: aws.ToString(dv.DomainName),
			Method: certs.Method(dv.ValidationMethod),
		}
		if rr := dv.ResourceRecord; rr != nil {
			opt.Record = &certs.ResourceRecord{
				Type:  string(rr.Type),
				Name:  aws.ToString(rr.Name),
				Value: aws.ToString(rr.Value),
			}
		}
		cert.ValidationOptions = append(cert.ValidationOptions, opt)
	}
	return cert, nil
}
