package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Global holds global.root_path/global.prefix/global.node.*/global.service.*
//— where artifacts are placed and how node/service reaping
// behaves.
type Global struct {
	RootPath string `yaml:"root_path"`
	Prefix   string `yaml:"prefix"`

	Node struct {
		Directory                 string `yaml:"directory"`
		MonitorSuffix             string `yaml:"monitor_suffix"`
		StaticConfigSuffix        string `yaml:"static_config_suffix"`
		ServiceTagSuffix          string `yaml:"service_tag_suffix"`
		CleanupDeadNodesOnCreation    bool `yaml:"cleanup_dead_nodes_on_creation"`
		CleanupDeadNodesOnDestruction bool `yaml:"cleanup_dead_nodes_on_destruction"`
	} `yaml:"node"`

	Service struct {
		Directory                string        `yaml:"directory"`
		DataSegmentSuffix        string        `yaml:"data_segment_suffix"`
		StaticConfigStorageSuffix  string      `yaml:"static_config_storage_suffix"`
		DynamicConfigStorageSuffix string      `yaml:"dynamic_config_storage_suffix"`
		ConnectionSuffix         string        `yaml:"connection_suffix"`
		CreationTimeout          time.Duration `yaml:"creation_timeout"`
	} `yaml:"service"`
}

// Defaults holds the defaults.* keys — used whenever a service builder
// leaves the corresponding knob unset. The keys sit directly under
// defaults; a nested defaults.publish_subscribe section is not read.
type Defaults struct {
	MaxPublishers                   uint32        `yaml:"max_publishers"`
	MaxSubscribers                   uint32        `yaml:"max_subscribers"`
	MaxNodes                         uint32        `yaml:"max_nodes"`
	SubscriberMaxBufferSize          uint32        `yaml:"subscriber_max_buffer_size"`
	SubscriberMaxBorrowedSamples     uint32        `yaml:"subscriber_max_borrowed_samples"`
	PublisherMaxLoanedSamples        uint32        `yaml:"publisher_max_loaned_samples"`
	PublisherHistorySize             uint32        `yaml:"publisher_history_size"`
	EnableSafeOverflow               bool          `yaml:"enable_safe_overflow"`
	UnableToDeliverStrategy          string        `yaml:"unable_to_deliver_strategy"`
	SubscriberExpiredConnectionBuffer uint32       `yaml:"subscriber_expired_connection_buffer"`
	CreationRetryLimit               int           `yaml:"creation_retry_limit"`
	CreationRetryBackoff             time.Duration `yaml:"creation_retry_backoff"`
}

// Config is the process-wide configuration surface
type Config struct {
	Global   Global   `yaml:"global"`
	Defaults Defaults `yaml:"defaults"`
}

// DefaultConfig returns the built-in defaults every service builder falls
// back to when the caller leaves an option unset, and every node/service
// directory layout falls back to when no config file is loaded.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Global.RootPath = "/tmp/iox2"
	cfg.Global.Prefix = "iox2_"
	cfg.Global.Node.Directory = "nodes"
	cfg.Global.Node.MonitorSuffix = ".node_monitor"
	cfg.Global.Node.StaticConfigSuffix = ".node"
	cfg.Global.Node.ServiceTagSuffix = ".service_tag"
	cfg.Global.Node.CleanupDeadNodesOnCreation = true
	cfg.Global.Node.CleanupDeadNodesOnDestruction = true
	cfg.Global.Service.Directory = "services"
	cfg.Global.Service.DataSegmentSuffix = ".data"
	cfg.Global.Service.StaticConfigStorageSuffix = ".service"
	cfg.Global.Service.DynamicConfigStorageSuffix = ".dynamic"
	cfg.Global.Service.ConnectionSuffix = ".connection"
	cfg.Global.Service.CreationTimeout = 375 * time.Millisecond

	cfg.Defaults = Defaults{
		MaxPublishers:                     4,
		MaxSubscribers:                    8,
		MaxNodes:                          20,
		SubscriberMaxBufferSize:           2,
		SubscriberMaxBorrowedSamples:      2,
		PublisherMaxLoanedSamples:         2,
		PublisherHistorySize:              0,
		EnableSafeOverflow:                true,
		UnableToDeliverStrategy:           "DiscardSample",
		SubscriberExpiredConnectionBuffer: 0,
		CreationRetryLimit:                5,
		CreationRetryBackoff:              4 * time.Millisecond,
	}
	return cfg
}

// LoadConfig reads a YAML config file, starting from DefaultConfig and
// overriding whatever the file sets rather than failing on a missing key.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
