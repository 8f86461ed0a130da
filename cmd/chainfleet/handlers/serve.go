package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/imamik/chainfleet/api/v1alpha1"
	"github.com/imamik/chainfleet/internal/auth"
	"github.com/imamik/chainfleet/internal/certgen"
	"github.com/imamik/chainfleet/internal/clusters"
	"github.com/imamik/chainfleet/internal/config"
	"github.com/imamik/chainfleet/internal/configservice"
	configrpc "github.com/imamik/chainfleet/internal/configservice/rpc"
	"github.com/imamik/chainfleet/internal/configservice/sessionstore"
	"github.com/imamik/chainfleet/internal/deployment"
	deployrpc "github.com/imamik/chainfleet/internal/deployment/rpc"
	"github.com/imamik/chainfleet/internal/platform/hcloud"
	"github.com/imamik/chainfleet/internal/platform/s3"
	"github.com/imamik/chainfleet/internal/tasks"
	"github.com/imamik/chainfleet/internal/tasks/postgres"
	"github.com/imamik/chainfleet/internal/util/grpcjson"
)

// shutdownTimeout bounds how long serve waits for listeners and running
// coordinations after a stop signal.
const shutdownTimeout = 10 * time.Second

// Serve loads the configuration at configPath, builds every backend it
// selects and serves both RPC services until ctx is done.
func Serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opts := zap.Options{Development: cfg.Debug}
	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)
	ctx = log.IntoContext(ctx, logger)

	rt, err := newBackends(ctx, cfg, newKubernetesClient)
	if err != nil {
		return err
	}
	defer rt.close()

	lis, err := net.Listen("tcp", cfg.RPC.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.RPC.ListenAddress, err)
	}

	grpcServer := grpcjson.NewServer(logger.WithName("rpc"))
	configrpc.RegisterConfigurationServer(grpcServer, configrpc.NewServer(rt.configuration))
	deployrpc.RegisterDeploymentServer(grpcServer, deployrpc.NewServer(rt.deployment, rt.tracker, rt.tokens))

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.ListenAddress,
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting chainfleet",
		"rpc", cfg.RPC.ListenAddress,
		"metrics", cfg.Metrics.ListenAddress,
		"taskStore", cfg.Tasks.Store,
		"sessionStore", cfg.Configuration.SessionStore,
		"clusterStore", cfg.Deployment.ClusterStore,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.tokens.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("rpc server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return metricsServer.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	waitForDeployments(logger, rt.deployment, shutdownTimeout)
	return err
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// waitForDeployments gives running coordinations a bounded chance to record
// their outcome. Tasks still running afterwards stay RUNNING in the store.
func waitForDeployments(logger logr.Logger, svc *deployment.Service, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Info("deployments still running at shutdown", "timeout", timeout)
	}
}

func newKubernetesClient() (client.Client, error) {
	restCfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	c, err := client.New(restCfg, client.Options{Scheme: v1alpha1.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return c, nil
}

// backends is the set of services built from one configuration.
type backends struct {
	tracker       *tasks.Tracker
	configuration *configservice.Service
	deployment    *deployment.Service
	tokens        *auth.TokenCache

	closers []func()
}

func (r *backends) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newBackends(ctx context.Context, cfg *config.Config, kube func() (client.Client, error)) (*backends, error) {
	rt := &backends{}
	ok := false
	defer func() {
		if !ok {
			rt.close()
		}
	}()

	var k8s client.Client
	if cfg.Deployment.ClusterStore == config.StoreKubernetes || cfg.Configuration.SessionStore == config.StoreKubernetes {
		c, err := kube()
		if err != nil {
			return nil, err
		}
		k8s = c
	}

	taskStore, err := rt.taskStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.tracker = tasks.NewTracker(taskStore, tasks.WithMergeRetries(cfg.Tasks.MergeRetries, 50*time.Millisecond))

	sessions, err := sessionStore(ctx, cfg, k8s)
	if err != nil {
		return nil, err
	}
	certs := certgen.New(
		certgen.WithWorkers(cfg.Certificates.Workers),
		certgen.WithValidity(cfg.Certificates.Validity),
		certgen.WithCurve(cfg.Certificates.Curve),
	)
	rt.configuration = configservice.NewService(sessions, certs,
		configservice.WithClientProxiesPerReplica(cfg.Configuration.ClientProxies()),
		configservice.WithPorts(configservice.Ports(cfg.Configuration.Ports)),
	)

	var clusterStore clusters.Store = clusters.NewMemoryStore()
	if cfg.Deployment.ClusterStore == config.StoreKubernetes {
		clusterStore = clusters.NewCRDStore(k8s, cfg.Deployment.Namespace)
	}

	provisioner, err := rt.provisioner(cfg)
	if err != nil {
		return nil, err
	}

	rt.tokens = auth.NewTokenCache(cfg.Deployment.TokenTTL, auth.WithClusterLister(clusterStore))
	coordinator := deployment.NewCoordinator(rt.tracker, clusterStore,
		deployment.WithWatchdog(cfg.Deployment.Watchdog()),
		deployment.WithResourceLinkPrefix(cfg.Deployment.ResourceLinkPrefix),
		deployment.WithInvalidator(rt.tokens),
	)

	var serviceOpts []deployment.ServiceOption
	if cfg.Sites.Validate {
		serviceOpts = append(serviceOpts, deployment.WithSiteValidator(
			hcloud.NewSiteValidator(cfg.Sites.Token, hcloud.WithNetworkZone(cfg.Sites.NetworkZone)),
		))
	}
	rt.deployment = deployment.NewService(rt.tracker, provisioner, coordinator, serviceOpts...)

	ok = true
	return rt, nil
}

func (r *backends) taskStore(ctx context.Context, cfg *config.Config) (tasks.Store, error) {
	if cfg.Tasks.Store != config.StorePostgres {
		return tasks.NewMemoryStore(), nil
	}
	if cfg.Tasks.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres task store")
	}
	store, pool, err := postgres.Connect(ctx, cfg.Tasks.DatabaseURL)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, pool.Close)
	return store, nil
}

func sessionStore(ctx context.Context, cfg *config.Config, k8s client.Client) (configservice.SessionStore, error) {
	switch cfg.Configuration.SessionStore {
	case config.StoreS3:
		s := cfg.Configuration.S3
		var opts []s3.ClientOption
		if s.PathStyle {
			opts = append(opts, s3.WithPathStyle())
		}
		objects, err := s3.NewClient(ctx, s.Endpoint, s.Region, s.AccessKey, s.SecretKey, opts...)
		if err != nil {
			return nil, err
		}
		if err := objects.EnsureBucket(ctx, s.Bucket); err != nil {
			return nil, err
		}
		return sessionstore.NewS3(objects, s.Bucket, s.Prefix), nil
	case config.StoreKubernetes:
		return sessionstore.NewKubernetes(k8s, cfg.Deployment.Namespace), nil
	default:
		return configservice.NewMemoryStore(), nil
	}
}

func (r *backends) provisioner(cfg *config.Config) (deployment.Provisioner, error) {
	if len(cfg.Events.Brokers) == 0 {
		return nil, fmt.Errorf("events.brokers is required to reach the orchestrator")
	}
	kc := deployment.KafkaConfig{
		Brokers:      cfg.Events.Brokers,
		RequestTopic: cfg.Events.RequestTopic,
		EventTopic:   cfg.Events.EventTopic,
		GroupPrefix:  cfg.Events.GroupPrefix,
	}
	writer := deployment.NewKafkaWriter(kc)
	r.closers = append(r.closers, func() { _ = writer.Close() })
	return deployment.NewKafkaProvisioner(writer, kc.RequestTopic, deployment.NewEventSource(kc)), nil
}
