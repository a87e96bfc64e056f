package organizations

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
)

// API is the subset of the Organizations client used by Provider.
type API interface {
	organizations.ListAccountsAPIClient
	organizations.ListTagsForResourceAPIClient
}

// Provider implements accounts.OrganizationLister for AWS Organizations.
type Provider struct {
	api API
	log logr.Logger
}

// New creates an Organizations provider over the given API client.
func New(log logr.Logger, api API) *Provider {
	return &Provider{api: api, log: log}
}

// NewFromConfig creates an Organizations provider using credentials from cfg.
func NewFromConfig(log logr.Logger, cfg aws.Config) *Provider {
	return New(log, organizations.NewFromConfig(cfg))
}

// ListMembers lists every account of the organization with its tags.
func (p *Provider) ListMembers(ctx context.Context) ([]accounts.Member, error) {
	var members []accounts.Member

	pages := organizations.NewListAccountsPaginator(p.api, &organizations.ListAccountsInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("organizations: list accounts: %w", err)
		}
		for _, a := range page.Accounts {
			id := aws.ToString(a.Id)
			tags, err := p.tags(ctx, id)
			if err != nil {
				return nil, err
			}
			members = append(members, accounts.Member{
				ID:     id,
				Name:   aws.ToString(a.Name),
				Active: active(a),
				Tags:   tags,
			})
		}
	}

	p.log.V(1).Info("listed organization accounts", "count", len(members))
	return members, nil
}

// tags returns the tags attached to an account.
func (p *Provider) tags(ctx context.Context, accountID string) (map[string]string, error) {
	tags := make(map[string]string)

	pages := organizations.NewListTagsForResourcePaginator(p.api, &organizations.ListTagsForResourceInput{
		ResourceId: aws.String(accountID),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("organizations: list tags for %s: %w", accountID, err)
		}
		for _, t := range page.Tags {
			tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
	}
	return tags, nil
}

// active reports whether the account is usable. Status is only read when
// State is unset.
func active(a types.Account) bool {
	if a.State != "" {
		return a.State == types.AccountStateActive
	}
	return a.Status == types.AccountStatusActive
}
