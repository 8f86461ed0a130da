// Package config defines the service configuration of chainfleet.
//
// A [Config] is read from an optional YAML file, completed with defaults,
// overridden from the environment and validated. Every section maps onto
// one component: deployment coordination, the configuration service and
// its session store, the task store, certificate generation, the RPC and
// metrics listeners, the Kafka event transport and site validation.
package config
