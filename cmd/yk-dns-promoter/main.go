package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/broker"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/config"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/controller"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/observability"
)

var Version = "dev"

func main() {
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: unable to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := ctrl.Log.WithName("setup")
	ctx := ctrl.SetupSignalHandler()

	log.Info("starting yk-dns-promoter", "version", Version)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Info("loaded config", "rootDomain", cfg.RootDomain, "organization", cfg.OrganizationMode(), "dryRun", cfg.DryRun)

	shutdown, err := observability.SetupTracing(ctx, os.Getenv(observability.TraceEndpointEnv), "yk-dns-promoter")
	if err != nil {
		return fmt.Errorf("unable to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error(err, "unable to flush traces")
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load AWS config: %w", err)
	}

	b := broker.New(ctrl.Log.WithName("broker"), awsCfg, broker.Options{
		SessionName:  cfg.SessionName,
		Route53QPS:   cfg.Route53QPS,
		Route53Burst: cfg.Route53Burst,
	})

	var discoverer accounts.Discoverer = accounts.Static{Roles: cfg.SubRoles}
	if cfg.OrganizationMode() {
		discoverer = accounts.Organization{
			Role:      cfg.DiscoverRole,
			TagKey:    cfg.EnvironmentTag,
			Partition: cfg.Partition,
		}
	}

	r := &controller.Reconciler{
		Broker:             b,
		Discoverer:         discoverer,
		Log:                ctrl.Log.WithName("reconciler"),
		Metrics:            controller.NewMetrics(ctrlmetrics.Registry),
		RootDomain:         cfg.RootDomain,
		RootRole:           cfg.RootRole,
		Regions:            cfg.Regions,
		RequireEnvironment: cfg.OrganizationMode(),
		DryRun:             cfg.DryRun,
		Once:               cfg.Once,
		Interval:           cfg.Interval,
		Concurrency:        cfg.Concurrency,
	}

	if !cfg.Once {
		if err := observability.Start(ctx, ctrl.Log.WithName("metrics"), cfg.MetricsBindAddress,
			observability.MetricsHandler(ctrlmetrics.Registry)); err != nil {
			return fmt.Errorf("unable to start metrics server: %w", err)
		}
		if err := observability.Start(ctx, ctrl.Log.WithName("health"), cfg.HealthProbeBindAddress,
			observability.HealthHandler(r.Ready)); err != nil {
			return fmt.Errorf("unable to start health probe server: %w", err)
		}
	}

	log.Info("starting reconciler")
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("reconciler exited with error: %w", err)
	}
	return nil
}
