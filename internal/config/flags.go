package config

import (
	"flag"
	"strconv"
	"strings"
)

// BindFlags registers a flag for every option, using the current values as
// defaults so that flags override the configuration file.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "run controller without actually performing any modifications")
	fs.BoolVar(&c.Once, "once", c.Once, "run controller just once")
	fs.BoolVar(&c.Once, "o", c.Once, "shorthand for -once")

	fs.StringVar(&c.RootDomain, "root-domain", c.RootDomain, "root domain for the controller")
	fs.StringVar(&c.RootDomain, "d", c.RootDomain, "shorthand for -root-domain")
	fs.StringVar(&c.RootRole, "root-role", c.RootRole, "optional role to assume for the root domain, not needed if run in the root domain account")
	fs.StringVar(&c.RootRole, "r", c.RootRole, "shorthand for -root-role")

	subRoles := &stringList{values: &c.SubRoles}
	fs.Var(subRoles, "sub-role", "role to assume for subdomains (repeatable, comma separated)")
	fs.Var(subRoles, "s", "shorthand for -sub-role")

	fs.StringVar(&c.DiscoverRole, "discover-role", c.DiscoverRole, "role name assumed in every organization account; enables organization discovery")
	fs.StringVar(&c.EnvironmentTag, "environment-tag", c.EnvironmentTag, "account tag holding the environment label")
	fs.StringVar(&c.Partition, "partition", c.Partition, "partition used to build discovered role ARNs")
	fs.Var(&stringList{values: &c.Regions}, "region", "region searched for certificates (repeatable, comma separated)")

	fs.DurationVar(&c.Interval, "interval", c.Interval, "time between reconciliation cycles")
	fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "number of accounts processed in parallel")
	fs.StringVar(&c.SessionName, "session-name", c.SessionName, "role session name used when assuming roles")
	fs.Var((*float32Value)(&c.Route53QPS), "route53-qps", "Route 53 requests per second per role")
	fs.IntVar(&c.Route53Burst, "route53-burst", c.Route53Burst, "Route 53 request burst per role")

	fs.StringVar(&c.MetricsBindAddress, "metrics-bind-address", c.MetricsBindAddress, "address the metrics endpoint binds to, \"0\" disables it")
	fs.StringVar(&c.HealthProbeBindAddress, "health-probe-bind-address", c.HealthProbeBindAddress, "address the probe endpoint binds to, \"0\" disables it")
}

// stringList is a repeatable flag. The first Set replaces values loaded from
// the configuration file, later ones append.
type stringList struct {
	values *[]string
	set    bool
}

func (s *stringList) String() string {
	if s == nil || s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s *stringList) Set(v string) error {
	if !s.set {
		*s.values = nil
		s.set = true
	}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s.values = append(*s.values, part)
		}
	}
	return nil
}

type float32Value float32

func (f *float32Value) String() string {
	return strconv.FormatFloat(float64(*f), 'g', -1, 32)
}

func (f *float32Value) Set(v string) error {
	parsed, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return err
	}
	*f = float32Value(parsed)
	return nil
}
