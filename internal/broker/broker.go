// Package broker assumes IAM roles and hands out provider sessions bound to
// the resulting credentials.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"
	"k8s.io/client-go/util/flowcontrol"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts/organizations"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/certs/acm"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns/route53"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/ports"
)

// DefaultSessionName is the role session name used when none is configured.
const DefaultSessionName = "yk-dns-promoter"

// Options tune how roles are assumed and how hard Route 53 is called.
type Options struct {
	SessionName  string
	Route53QPS   float32
	Route53Burst int
}

// Broker implements ports.Broker on top of STS AssumeRole.
type Broker struct {
	base aws.Config
	sts  stscreds.AssumeRoleAPIClient
	opts Options
	log  logr.Logger

	mu    sync.Mutex
	roles map[string]*assumed
}

// assumed holds the cached credentials and Route 53 limiter of one role.
type assumed struct {
	creds   aws.CredentialsProvider
	limiter flowcontrol.RateLimiter
}

// New creates a broker assuming roles with the base configuration's
// credentials.
func New(log logr.Logger, base aws.Config, opts Options) *Broker {
	return NewWithSTS(log, base, sts.NewFromConfig(base), opts)
}

// NewWithSTS creates a broker that assumes roles through the given STS client.
func NewWithSTS(log logr.Logger, base aws.Config, client stscreds.AssumeRoleAPIClient, opts Options) *Broker {
	if opts.SessionName == "" {
		opts.SessionName = DefaultSessionName
	}
	if opts.Route53QPS <= 0 {
		opts.Route53QPS = 5
	}
	if opts.Route53Burst <= 0 {
		opts.Route53Burst = 5
	}
	return &Broker{
		base:  base,
		sts:   client,
		opts:  opts,
		log:   log,
		roles: make(map[string]*assumed),
	}
}

// Assume returns a session acting as role in region. The role is assumed
// eagerly so that a role that does not exist or cannot be assumed fails
// here rather than on the first provider call.
func (b *Broker) Assume(ctx context.Context, role, region string) (*ports.Session, error) {
	a := b.lookup(role)

	if role != "" {
		if _, err := a.creds.Retrieve(ctx); err != nil {
			return nil, fmt.Errorf("broker: assume role %s: %w", role, err)
		}
	}

	cfg := b.base.Copy()
	cfg.Credentials = a.creds
	if region != "" {
		cfg.Region = region
	}

	log := b.log.WithValues("role", role, "region", cfg.Region)
	log.V(1).Info("session ready")

	return &ports.Session{
		Zones:        route53.NewFromConfig(log.WithName("route53"), cfg, a.limiter),
		Certificates: acm.NewFromConfig(log.WithName("acm"), cfg),
		Organization: organizations.NewFromConfig(log.WithName("organizations"), cfg),
	}, nil
}

// lookup returns the cached state for role, creating it on first use.
func (b *Broker) lookup(role string) *assumed {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a, ok := b.roles[role]; ok {
		return a
	}

	a := &assumed{
		creds:   b.base.Credentials,
		limiter: flowcontrol.NewTokenBucketRateLimiter(b.opts.Route53QPS, b.opts.Route53Burst),
	}
	if role != "" {
		provider := stscreds.NewAssumeRoleProvider(b.sts, role, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = b.opts.SessionName
		})
		a.creds = aws.NewCredentialsCache(provider)
	}
	b.roles[role] = a
	return a
}
