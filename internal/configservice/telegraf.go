package configservice

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Telegraf and metrics configuration paths on a node.
const (
	TelegrafConfigPath = "/telegraf/telegraf.conf"
	MetricsConfigPath  = "/concord/config-local/metrics_config.yaml"
)

type telegrafConfig struct {
	Agent   telegrafAgent   `toml:"agent"`
	Inputs  telegrafInputs  `toml:"inputs"`
	Outputs telegrafOutputs `toml:"outputs"`
}

type telegrafAgent struct {
	Interval string `toml:"interval"`
	Hostname string `toml:"hostname"`
}

type telegrafInputs struct {
	Prometheus []telegrafPrometheusInput `toml:"prometheus"`
}

type telegrafPrometheusInput struct {
	URLs []string          `toml:"urls"`
	Tags map[string]string `toml:"tags"`
}

type telegrafOutputs struct {
	PrometheusClient []telegrafPrometheusOutput `toml:"prometheus_client"`
}

type telegrafPrometheusOutput struct {
	Listen string `toml:"listen"`
}

// telegrafConfigs renders one Telegraf agent configuration per host, each
// scraping its own replica's metrics endpoint.
func telegrafConfigs(hosts []string, ports Ports) ([][]byte, error) {
	out := make([][]byte, len(hosts))
	for i, host := range hosts {
		cfg := telegrafConfig{
			Agent: telegrafAgent{Interval: "10s", Hostname: fmt.Sprintf("replica%d", i)},
			Inputs: telegrafInputs{Prometheus: []telegrafPrometheusInput{{
				URLs: []string{fmt.Sprintf("http://%s:%d/metrics", host, ports.Metrics)},
				Tags: map[string]string{"replica_id": fmt.Sprint(i)},
			}}},
			Outputs: telegrafOutputs{PrometheusClient: []telegrafPrometheusOutput{{Listen: ":9273"}}},
		}

		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to render telegraf config for node %d: %w", i, err)
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}

type metricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     int    `yaml:"port"`
	Endpoint string `yaml:"endpoint"`
	Period   string `yaml:"period"`
}

// metricsConfigYAML renders the replica-side metrics exporter settings shared
// by all nodes.
func metricsConfigYAML(ports Ports) ([]byte, error) {
	data, err := yaml.Marshal(metricsConfig{
		Enabled:  true,
		Port:     ports.Metrics,
		Endpoint: "/metrics",
		Period:   "10s",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render metrics config: %w", err)
	}
	return data, nil
}
