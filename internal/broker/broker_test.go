package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	logrtesting "github.com/go-logr/logr/testing"
)

// fakeSTS hands out credentials for known roles and counts AssumeRole calls.
type fakeSTS struct {
	mu       sync.Mutex
	allowed  map[string]bool
	calls    map[string]int
	sessions []string
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role := aws.ToString(in.RoleArn)
	f.calls[role]++
	f.sessions = append(f.sessions, aws.ToString(in.RoleSessionName))
	if !f.allowed[role] {
		return nil, errors.New("AccessDenied: not authorized to perform sts:AssumeRole")
	}
	return &sts.AssumeRoleOutput{Credentials: &ststypes.Credentials{
		AccessKeyId:     aws.String("AKIA" + role),
		SecretAccessKey: aws.String("secret"),
		SessionToken:    aws.String("token"),
		Expiration:      aws.Time(time.Now().Add(time.Hour)),
	}}, nil
}

const prodRole = "arn:aws:iam::111111111111:role/dns-promoter"

func newBroker(t *testing.T, fake *fakeSTS) *Broker {
	t.Helper()
	return NewWithSTS(logrtesting.NewTestLogger(t), aws.Config{Region: "eu-west-1"}, fake, Options{})
}

func TestAssume_CachesCredentialsAcrossRegions(t *testing.T) {
	fake := &fakeSTS{allowed: map[string]bool{prodRole: true}, calls: map[string]int{}}
	b := newBroker(t, fake)
	ctx := context.Background()

	for _, region := range []string{"", "us-east-1", "eu-central-1"} {
		s, err := b.Assume(ctx, prodRole, region)
		if err != nil {
			t.Fatalf("Assume(%q): %v", region, err)
		}
		if s.Zones == nil || s.Certificates == nil || s.Organization == nil {
			t.Fatalf("Assume(%q): expected all providers to be set", region)
		}
	}

	if fake.calls[prodRole] != 1 {
		t.Errorf("expected a single AssumeRole call, got %d", fake.calls[prodRole])
	}
	if fake.sessions[0] != DefaultSessionName {
		t.Errorf("expected session name %q, got %q", DefaultSessionName, fake.sessions[0])
	}
}

func TestAssume_FailsForUnassumableRole(t *testing.T) {
	fake := &fakeSTS{allowed: map[string]bool{}, calls: map[string]int{}}
	b := newBroker(t, fake)

	if _, err := b.Assume(context.Background(), prodRole, ""); err == nil {
		t.Fatal("expected error for role that cannot be assumed, got nil")
	}
}

func TestAssume_EmptyRoleUsesAmbientCredentials(t *testing.T) {
	fake := &fakeSTS{allowed: map[string]bool{}, calls: map[string]int{}}
	b := newBroker(t, fake)

	s, err := b.Assume(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Zones == nil {
		t.Fatal("expected zone provider")
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no AssumeRole calls, got %v", fake.calls)
	}
}

func TestNewWithSTS_Defaults(t *testing.T) {
	b := NewWithSTS(logrtesting.NewTestLogger(t), aws.Config{}, &fakeSTS{}, Options{SessionName: "custom"})
	if b.opts.SessionName != "custom" {
		t.Errorf("expected session name 'custom', got %q", b.opts.SessionName)
	}
	if b.opts.Route53QPS != 5 || b.opts.Route53Burst != 5 {
		t.Errorf("expected default Route 53 limits 5/5, got %v/%d", b.opts.Route53QPS, b.opts.Route53Burst)
	}
}
