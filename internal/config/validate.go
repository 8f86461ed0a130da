package config

import (
	"fmt"
	"slices"

	"github.com/imamik/chainfleet/internal/certgen"
)

// ValidNetworkZones contains all valid Hetzner Cloud network zones.
// https://docs.hetzner.com/cloud/networks/overview/
var ValidNetworkZones = map[string]bool{
	"eu-central":   true, // Europe
	"us-east":      true, // US East
	"us-west":      true, // US West
	"ap-southeast": true, // Asia Pacific
}

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if err := c.validateStores(); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}
	if err := c.validateDeployment(); err != nil {
		return fmt.Errorf("deployment validation failed: %w", err)
	}
	if err := c.validateConfiguration(); err != nil {
		return fmt.Errorf("configuration service validation failed: %w", err)
	}
	if err := c.validateCertificates(); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}
	if err := c.validateSites(); err != nil {
		return fmt.Errorf("site validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateStores() error {
	if !slices.Contains([]string{StoreMemory, StoreKubernetes}, c.Deployment.ClusterStore) {
		return fmt.Errorf("deployment.clusterStore must be %s or %s, got %q", StoreMemory, StoreKubernetes, c.Deployment.ClusterStore)
	}
	if !slices.Contains([]string{StoreMemory, StoreS3, StoreKubernetes}, c.Configuration.SessionStore) {
		return fmt.Errorf("configuration.sessionStore must be %s, %s or %s, got %q", StoreMemory, StoreS3, StoreKubernetes, c.Configuration.SessionStore)
	}
	if !slices.Contains([]string{StoreMemory, StorePostgres}, c.Tasks.Store) {
		return fmt.Errorf("tasks.store must be %s or %s, got %q", StoreMemory, StorePostgres, c.Tasks.Store)
	}
	if c.Configuration.SessionStore == StoreS3 && c.Configuration.S3.Bucket == "" {
		return fmt.Errorf("configuration.s3.bucket is required for the s3 session store")
	}
	return nil
}

func (c *Config) validateDeployment() error {
	if c.Deployment.WatchdogTimeout != nil && *c.Deployment.WatchdogTimeout < 0 {
		return fmt.Errorf("deployment.watchdogTimeout must not be negative")
	}
	if c.Tasks.MergeRetries < 0 {
		return fmt.Errorf("tasks.mergeRetries must not be negative")
	}
	return nil
}

func (c *Config) validateConfiguration() error {
	if c.Configuration.ClientProxies() < 0 {
		return fmt.Errorf("configuration.clientProxiesPerReplica must not be negative")
	}
	p := c.Configuration.Ports
	for name, port := range map[string]int{
		"replica":         p.Replica,
		"clientProxyBase": p.ClientProxyBase,
		"clientService":   p.ClientService,
		"ethRpc":          p.EthRPC,
		"metrics":         p.Metrics,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("configuration.ports.%s must be between 1 and 65535, got %d", name, port)
		}
	}
	return nil
}

func (c *Config) validateCertificates() error {
	if err := certgen.ParseCurve(c.Certificates.Curve); err != nil {
		return fmt.Errorf("certificates.curve: %w", err)
	}
	if c.Certificates.Workers < 0 {
		return fmt.Errorf("certificates.workers must not be negative")
	}
	if c.Certificates.Validity < 0 {
		return fmt.Errorf("certificates.validity must not be negative")
	}
	return nil
}

func (c *Config) validateSites() error {
	if c.Sites.NetworkZone != "" && !ValidNetworkZones[c.Sites.NetworkZone] {
		return fmt.Errorf("invalid network zone %q", c.Sites.NetworkZone)
	}
	return nil
}
