/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/dc-tec/kafka-cluster-operator/internal/backoff"
	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	"github.com/dc-tec/kafka-cluster-operator/internal/controller/topiccontroller"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// options holds the parsed command line of the controller subcommand.
type options struct {
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
	secureMetrics        bool
	enableHTTP2          bool
	watchNamespace       string
	maxConcurrent        int
	lookupRetryBase      time.Duration
	lookupRetryMax       time.Duration
	lookupMaxAttempts    int
	zap                  zap.Options
}

func parseFlags(args []string) (*options, error) {
	o := &options{zap: zap.Options{Development: true}}

	fs := flag.NewFlagSet("controller", flag.ContinueOnError)
	fs.StringVar(&o.metricsAddr, "metrics-bind-address", ":8443", "The address the metrics endpoint binds to.")
	fs.StringVar(&o.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	fs.BoolVar(&o.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	fs.BoolVar(&o.secureMetrics, "metrics-secure", true,
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead.")
	fs.BoolVar(&o.enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics server")
	fs.StringVar(&o.watchNamespace, "watch-namespace", "",
		"Restrict the operator to cluster ConfigMaps in this namespace. Empty watches all namespaces.")
	fs.IntVar(&o.maxConcurrent, "max-concurrent-reconciles", 2,
		"Number of clusters reconciled in parallel.")
	fs.DurationVar(&o.lookupRetryBase, "lookup-retry-base", constants.LookupRetryBase,
		"First delay between retries of a transient topic controller Deployment lookup.")
	fs.DurationVar(&o.lookupRetryMax, "lookup-retry-max", constants.LookupRetryMax,
		"Upper bound on the delay between retries of a transient topic controller Deployment lookup.")
	fs.IntVar(&o.lookupMaxAttempts, "lookup-max-attempts", constants.LookupRetryMaxAttempts,
		"Retries of a transient topic controller Deployment lookup before the pass gives up.")
	o.zap.BindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.maxConcurrent <= 0 {
		return nil, fmt.Errorf("--max-concurrent-reconciles must be positive, got %d", o.maxConcurrent)
	}
	if o.lookupMaxAttempts <= 0 {
		return nil, fmt.Errorf("--lookup-max-attempts must be positive, got %d", o.lookupMaxAttempts)
	}
	if o.lookupRetryBase <= 0 {
		return nil, fmt.Errorf("--lookup-retry-base must be positive, got %s", o.lookupRetryBase)
	}
	if o.lookupRetryMax < o.lookupRetryBase {
		return nil, fmt.Errorf("--lookup-retry-max (%s) must not be below --lookup-retry-base (%s)",
			o.lookupRetryMax, o.lookupRetryBase)
	}
	return o, nil
}

// cacheOptions limits the informer caches to the watched namespace when one is set.
func (o *options) cacheOptions() cache.Options {
	if o.watchNamespace == "" {
		return cache.Options{}
	}
	return cache.Options{
		DefaultNamespaces: map[string]cache.Config{o.watchNamespace: {}},
	}
}

func (o *options) metricsOptions() metricsserver.Options {
	var tlsOpts []func(*tls.Config)

	// if the enable-http2 flag is false (the default), http/2 should be disabled
	// due to its vulnerabilities. More specifically, disabling http/2 will
	// prevent from being vulnerable to the HTTP/2 Stream Cancellation and
	// Rapid Reset CVEs. For more information see:
	// - https://github.com/advisories/GHSA-qppj-fm5r-hxr3
	// - https://github.com/advisories/GHSA-4374-p667-p6c8
	disableHTTP2 := func(c *tls.Config) {
		setupLog.Info("disabling http/2")
		c.NextProtos = []string{"http/1.1"}
	}
	if !o.enableHTTP2 {
		tlsOpts = append(tlsOpts, disableHTTP2)
	}

	metricsServerOptions := metricsserver.Options{
		BindAddress:   o.metricsAddr,
		SecureServing: o.secureMetrics,
		TLSOpts:       tlsOpts,
	}
	if o.secureMetrics {
		// FilterProvider is used to protect the metrics endpoint with authn/authz.
		metricsServerOptions.FilterProvider = filters.WithAuthenticationAndAuthorization
	}
	return metricsServerOptions
}

// Run starts the manager hosting the topic controller reconciler.
func Run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&o.zap)))

	operatorNamespace := os.Getenv(constants.EnvPodNamespace)
	if operatorNamespace == "" {
		setupLog.Info("POD_NAMESPACE not set, leader election lease uses the in-cluster default")
	} else {
		setupLog.Info("Using operator namespace from POD_NAMESPACE", "namespace", operatorNamespace)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                  scheme,
		Metrics:                 o.metricsOptions(),
		HealthProbeBindAddress:  o.probeAddr,
		LeaderElection:          o.enableLeaderElection,
		LeaderElectionID:        "kafka-cluster-operator-leader.strimzi.io",
		LeaderElectionNamespace: operatorNamespace,
		Cache:                   o.cacheOptions(),
	})
	if err != nil {
		return fmt.Errorf("unable to start manager: %w", err)
	}

	reconciler := &topiccontroller.Reconciler{
		Client:            mgr.GetClient(),
		Scheme:            mgr.GetScheme(),
		LookupPolicy:      backoff.Policy{Base: o.lookupRetryBase, Max: o.lookupRetryMax},
		LookupMaxAttempts: o.lookupMaxAttempts,
	}
	if err := reconciler.SetupWithManager(mgr, topiccontroller.SetupOptions{
		MaxConcurrentReconciles: o.maxConcurrent,
	}); err != nil {
		return fmt.Errorf("unable to create controller %s: %w", constants.ControllerNameTopicController, err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting controller manager", "watch_namespace", o.watchNamespace)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}
