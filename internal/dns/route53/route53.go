package route53

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/go-logr/logr"
	"k8s.io/client-go/util/flowcontrol"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// API is the subset of the Route 53 client used by Provider.
type API interface {
	route53.ListHostedZonesAPIClient
	GetHostedZone(ctx context.Context, params *route53.GetHostedZoneInput, optFns ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Provider implements dns.Provider for Amazon Route 53.
type Provider struct {
	api     API
	limiter flowcontrol.RateLimiter
	log     logr.Logger
}

// New creates a Route 53 provider over the given API client. Every API call
// waits on limiter first; a nil limiter disables throttling.
func New(log logr.Logger, api API, limiter flowcontrol.RateLimiter) *Provider {
	if limiter == nil {
		limiter = flowcontrol.NewFakeAlwaysRateLimiter()
	}
	return &Provider{api: api, limiter: limiter, log: log}
}

// NewFromConfig creates a Route 53 provider using credentials from cfg.
func NewFromConfig(log logr.Logger, cfg aws.Config, limiter flowcontrol.RateLimiter) *Provider {
	return New(log, route53.NewFromConfig(cfg), limiter)
}

// ListZones pages through every hosted zone visible to the credentials.
func (p *Provider) ListZones(ctx context.Context) ([]dns.HostedZone, error) {
	var zones []dns.HostedZone

	pages := route53.NewListHostedZonesPaginator(p.api, &route53.ListHostedZonesInput{})
	for pages.HasMorePages() {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("route53: list hosted zones: %w", err)
		}
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("route53: list hosted zones: %w", err)
		}
		for _, hz := range page.HostedZones {
			zone := dns.HostedZone{
				ID:   aws.ToString(hz.Id),
				Name: aws.ToString(hz.Name),
			}
			if hz.Config != nil {
				zone.Private = hz.Config.PrivateZone
			}
			zones = append(zones, zone)
		}
	}

	p.log.V(1).Info("listed hosted zones", "count", len(zones))
	return zones, nil
}

// NameServers returns the delegation set of the given zone.
func (p *Provider) NameServers(ctx context.Context, zoneID string) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("route53: get hosted zone %s: %w", zoneID, err)
	}
	out, err := p.api.GetHostedZone(ctx, &route53.GetHostedZoneInput{Id: aws.String(zoneID)})
	if err != nil {
		return nil, fmt.Errorf("route53: get hosted zone %s: %w", zoneID, err)
	}
	if out.DelegationSet == nil {
		return nil, nil
	}
	return out.DelegationSet.NameServers, nil
}

// Upsert creates or replaces the record set described by change.
func (p *Provider) Upsert(ctx context.Context, zoneID string, change dns.Change) error {
	p.log.Info("upserting record", "zone", zoneID, "name", change.Name, "type", change.Type, "values", change.Values)

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("route53: upsert %s %s: %w", change.Type, change.Name, err)
	}
	_, err := p.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch:  buildChangeBatch(change),
	})
	if err != nil {
		return fmt.Errorf("route53: upsert %s %s: %w", change.Type, change.Name, err)
	}
	return nil
}

// buildChangeBatch creates the single-change UPSERT batch for change.
func buildChangeBatch(change dns.Change) *types.ChangeBatch {
	records := make([]types.ResourceRecord, 0, len(change.Values))
	for _, v := range change.Values {
		records = append(records, types.ResourceRecord{Value: aws.String(v)})
	}
	return &types.ChangeBatch{
		Comment: aws.String("managed by yk-dns-promoter"),
		Changes: []types.Change{{
			Action: types.ChangeActionUpsert,
			ResourceRecordSet: &types.ResourceRecordSet{
				Name:            aws.String(change.Name),
				Type:            types.RRType(change.Type),
				TTL:             aws.Int64(change.TTL),
				ResourceRecords: records,
			},
		}},
	}
}
