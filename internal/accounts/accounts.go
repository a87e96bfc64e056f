// Package accounts discovers the subordinate accounts whose zones and
// certificates are promoted into the root zone.
package accounts

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// DefaultEnvironmentTag is the account tag holding the environment label.
const DefaultEnvironmentTag = "environment"

// Account is a subordinate account and the role used to reach it.
type Account struct {
	ID          string
	Name        string
	Role        string // ARN assumed to act in the account
	Environment string // empty when unknown
}

// Member is an account as listed by the organization.
type Member struct {
	ID     string
	Name   string
	Active bool
	Tags   map[string]string
}

// OrganizationLister lists the members of an organization.
type OrganizationLister interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// Discoverer returns the accounts to reconcile in one cycle. org is bound
// to the root credentials and may be nil when no organization is used.
type Discoverer interface {
	Discover(ctx context.Context, org OrganizationLister) ([]Account, error)
}

// Static is a fixed list of roles without environment information.
type Static struct {
	Roles []string
}

// Discover returns one account per configured role. The account id is taken
// from the role ARN when it parses.
func (s Static) Discover(_ context.Context, _ OrganizationLister) ([]Account, error) {
	out := make([]Account, 0, len(s.Roles))
	for _, role := range s.Roles {
		id := role
		if a, err := arn.Parse(role); err == nil && a.AccountID != "" {
			id = a.AccountID
		}
		out = append(out, Account{ID: id, Role: role})
	}
	return out, nil
}

// Organization discovers accounts from the organization and reaches each of
// them through the same role name.
type Organization struct {
	Role      string // role name present in every member account
	TagKey    string // defaults to DefaultEnvironmentTag
	Partition string // defaults to "aws"
}

// Discover lists active members and derives their role ARN and environment.
func (o Organization) Discover(ctx context.Context, org OrganizationLister) ([]Account, error) {
	if org == nil {
		return nil, fmt.Errorf("accounts: no organization provider")
	}
	members, err := org.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts: listing organization: %w", err)
	}

	tagKey := o.TagKey
	if tagKey == "" {
		tagKey = DefaultEnvironmentTag
	}

	out := make([]Account, 0, len(members))
	for _, m := range members {
		if !m.Active {
			continue
		}
		out = append(out, Account{
			ID:          m.ID,
			Name:        m.Name,
			Role:        o.RoleARN(m.ID),
			Environment: m.Tags[tagKey],
		})
	}
	return out, nil
}

// RoleARN returns the ARN of the discovery role in the given account.
func (o Organization) RoleARN(accountID string) string {
	partition := o.Partition
	if partition == "" {
		partition = "aws"
	}
	return arn.ARN{
		Partition: partition,
		Service:   "iam",
		AccountID: accountID,
		Resource:  "role/" + o.Role,
	}.String()
}
