package config

import "time"

// Default values applied by LoadFile.
const (
	DefaultWatchdogTimeout         = 30 * time.Minute
	DefaultResourceLinkPrefix      = "/api/blockchains"
	DefaultNamespace               = "chainfleet"
	DefaultTokenTTL                = 5 * time.Minute
	DefaultClientProxiesPerReplica = 4
	DefaultMergeRetries            = 10
	DefaultCertificateValidity     = 10 * 365 * 24 * time.Hour
	DefaultCurve                   = "P-256"
	DefaultRPCAddress              = ":50051"
	DefaultMetricsAddress          = ":9090"
	DefaultRequestTopic            = "chainfleet.cluster-requests"
	DefaultEventTopic              = "chainfleet.deployment-events"
	DefaultGroupPrefix             = "chainfleet-session-"
	DefaultS3Region                = "us-east-1"
	DefaultS3Prefix                = "chainfleet"
)

// Default ports of the stock node images.
const (
	DefaultReplicaPort         = 3501
	DefaultClientProxyBasePort = 3505
	DefaultClientServicePort   = 50051
	DefaultEthRPCPort          = 8545
	DefaultMetricsPort         = 9891
)

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Deployment.ResourceLinkPrefix == "" {
		c.Deployment.ResourceLinkPrefix = DefaultResourceLinkPrefix
	}
	if c.Deployment.ClusterStore == "" {
		c.Deployment.ClusterStore = StoreMemory
	}
	if c.Deployment.Namespace == "" {
		c.Deployment.Namespace = DefaultNamespace
	}
	if c.Deployment.TokenTTL == 0 {
		c.Deployment.TokenTTL = DefaultTokenTTL
	}

	if c.Configuration.SessionStore == "" {
		c.Configuration.SessionStore = StoreMemory
	}
	p := &c.Configuration.Ports
	if p.Replica == 0 {
		p.Replica = DefaultReplicaPort
	}
	if p.ClientProxyBase == 0 {
		p.ClientProxyBase = DefaultClientProxyBasePort
	}
	if p.ClientService == 0 {
		p.ClientService = DefaultClientServicePort
	}
	if p.EthRPC == 0 {
		p.EthRPC = DefaultEthRPCPort
	}
	if p.Metrics == 0 {
		p.Metrics = DefaultMetricsPort
	}
	if c.Configuration.S3.Region == "" {
		c.Configuration.S3.Region = DefaultS3Region
	}
	if c.Configuration.S3.Prefix == "" {
		c.Configuration.S3.Prefix = DefaultS3Prefix
	}

	if c.Tasks.Store == "" {
		c.Tasks.Store = StoreMemory
	}
	if c.Tasks.MergeRetries == 0 {
		c.Tasks.MergeRetries = DefaultMergeRetries
	}

	if c.Certificates.Validity == 0 {
		c.Certificates.Validity = DefaultCertificateValidity
	}
	if c.Certificates.Curve == "" {
		c.Certificates.Curve = DefaultCurve
	}

	if c.RPC.ListenAddress == "" {
		c.RPC.ListenAddress = DefaultRPCAddress
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = DefaultMetricsAddress
	}

	if c.Events.RequestTopic == "" {
		c.Events.RequestTopic = DefaultRequestTopic
	}
	if c.Events.EventTopic == "" {
		c.Events.EventTopic = DefaultEventTopic
	}
	if c.Events.GroupPrefix == "" {
		c.Events.GroupPrefix = DefaultGroupPrefix
	}
}
