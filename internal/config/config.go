package config

import (
	"time"

	"github.com/imamik/chainfleet/internal/util/ptr"
)

// Store backends.
const (
	StoreMemory     = "memory"
	StorePostgres   = "postgres"
	StoreS3         = "s3"
	StoreKubernetes = "kubernetes"
)

// Config is the complete service configuration.
type Config struct {
	Deployment    DeploymentConfig    `yaml:"deployment"`
	Configuration ConfigurationConfig `yaml:"configuration"`
	Tasks         TasksConfig         `yaml:"tasks"`
	Certificates  CertificatesConfig  `yaml:"certificates"`
	RPC           ListenerConfig      `yaml:"rpc"`
	Metrics       ListenerConfig      `yaml:"metrics"`
	Events        EventsConfig        `yaml:"events"`
	Sites         SitesConfig         `yaml:"sites"`

	// Debug switches logging to development mode.
	Debug bool `yaml:"debug"`
}

// DeploymentConfig configures the deployment coordinator.
type DeploymentConfig struct {
	// WatchdogTimeout fails a deployment whose stream stays silent this
	// long. Zero disables the watchdog; unset selects 30m.
	WatchdogTimeout *time.Duration `yaml:"watchdogTimeout"`

	// ResourceLinkPrefix prefixes the link of succeeded tasks.
	ResourceLinkPrefix string `yaml:"resourceLinkPrefix"`

	// ClusterStore is memory or kubernetes.
	ClusterStore string `yaml:"clusterStore"`

	// Namespace holds Blockchain resources and session Secrets.
	Namespace string `yaml:"namespace"`

	// TokenTTL bounds how long authorization grants are cached.
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// ConfigurationConfig configures the identity and configuration service.
type ConfigurationConfig struct {
	// ClientProxiesPerReplica sizes the principal topology. Zero leaves the
	// topology unknown, so every node receives every identity.
	ClientProxiesPerReplica *int `yaml:"clientProxiesPerReplica"`

	// SessionStore is memory, s3 or kubernetes.
	SessionStore string `yaml:"sessionStore"`

	Ports PortsConfig `yaml:"ports"`
	S3    S3Config    `yaml:"s3"`
}

// PortsConfig are the ports rendered into node configuration.
type PortsConfig struct {
	Replica         int `yaml:"replica"`
	ClientProxyBase int `yaml:"clientProxyBase"`
	ClientService   int `yaml:"clientService"`
	EthRPC          int `yaml:"ethRpc"`
	Metrics         int `yaml:"metrics"`
}

// S3Config locates the bucket of the s3 session store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"pathStyle"`

	// Credentials come from the environment only.
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// TasksConfig configures the task tracker.
type TasksConfig struct {
	// Store is memory or postgres.
	Store        string `yaml:"store"`
	MergeRetries int    `yaml:"mergeRetries"`

	// DatabaseURL comes from the environment only.
	DatabaseURL string `yaml:"-"`
}

// CertificatesConfig configures the certificate generator.
type CertificatesConfig struct {
	// Workers bounds concurrent key generation; zero uses all cores.
	Workers  int           `yaml:"workers"`
	Validity time.Duration `yaml:"validity"`
	Curve    string        `yaml:"curve"`
}

// ListenerConfig is a network listener.
type ListenerConfig struct {
	ListenAddress string `yaml:"listenAddress"`
}

// EventsConfig locates the Kafka topics shared with the orchestrator.
type EventsConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"requestTopic"`
	EventTopic   string   `yaml:"eventTopic"`
	GroupPrefix  string   `yaml:"groupPrefix"`
}

// SitesConfig configures orchestration site validation.
type SitesConfig struct {
	// Validate checks FIXED zones against Hetzner Cloud locations.
	Validate    bool   `yaml:"validate"`
	NetworkZone string `yaml:"networkZone"`

	// Token comes from the environment only.
	Token string `yaml:"-"`
}

// Watchdog returns the effective watchdog timeout.
func (d DeploymentConfig) Watchdog() time.Duration {
	return ptr.Deref(d.WatchdogTimeout, DefaultWatchdogTimeout)
}

// ClientProxies returns the effective client proxy count.
func (c ConfigurationConfig) ClientProxies() int {
	return ptr.Deref(c.ClientProxiesPerReplica, DefaultClientProxiesPerReplica)
}
