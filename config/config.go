package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/eureka/logger"
)

// Data center names understood by the client.
const (
	DataCenterMyOwn  = "MyOwn"
	DataCenterAmazon = "Amazon"
)

// Config is the complete, validated client configuration. Build one with
// a Builder; the value is not mutated after construction.
type Config struct {
	Logger   logger.Config  `yaml:"logger" mapstructure:"logger"`
	Instance InstanceConfig `yaml:"instance" mapstructure:"instance"`
	Eureka   EurekaConfig   `yaml:"eureka" mapstructure:"eureka"`
}

// InstanceConfig describes the local instance being registered.
type InstanceConfig struct {
	// App is the application name this instance belongs to.
	App string `yaml:"app" mapstructure:"app" validate:"required"`

	// InstanceID uniquely identifies this instance; generated when empty.
	InstanceID string `yaml:"instance_id" mapstructure:"instance_id"`

	// HostName and IPAddr are advertised to other services. Overridden by
	// cloud metadata when the data center is Amazon and metadata fetching
	// is enabled.
	HostName string `yaml:"host_name" mapstructure:"host_name" validate:"required"`
	IPAddr   string `yaml:"ip_addr" mapstructure:"ip_addr" validate:"required"`

	// VipAddress is the logical service name used for discovery. Multiple
	// names are comma-separated.
	VipAddress       string `yaml:"vip_address" mapstructure:"vip_address" validate:"required"`
	SecureVipAddress string `yaml:"secure_vip_address" mapstructure:"secure_vip_address"`

	// Port is the advertised service port.
	Port       int `yaml:"port" mapstructure:"port" validate:"required,gt=0,lte=65535"`
	SecurePort int `yaml:"secure_port" mapstructure:"secure_port" validate:"gte=0,lte=65535"`

	// DataCenter is MyOwn or Amazon.
	DataCenter string `yaml:"data_center" mapstructure:"data_center" validate:"omitempty,oneof=MyOwn Amazon"`

	StatusPageURL  string `yaml:"status_page_url" mapstructure:"status_page_url"`
	HealthCheckURL string `yaml:"health_check_url" mapstructure:"health_check_url"`
	HomePageURL    string `yaml:"home_page_url" mapstructure:"home_page_url"`

	// Metadata is arbitrary key-value metadata attached to the instance.
	Metadata map[string]string `yaml:"metadata" mapstructure:"metadata"`
}

// EurekaConfig describes the registry servers and the client's behavior
// toward them.
type EurekaConfig struct {
	// Host and Port locate a single server; used when ServiceURLs is
	// empty and DNS resolution is off.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// ServicePath is the registry base path.
	ServicePath string `yaml:"service_path" mapstructure:"service_path"`

	// SSL selects https for URLs built from Host/Port or DNS hosts.
	SSL bool `yaml:"ssl" mapstructure:"ssl"`

	// ServiceURLs maps zone names to lists of full server base URLs.
	ServiceURLs map[string][]string `yaml:"service_urls" mapstructure:"service_urls"`

	// AvailabilityZones maps a region to its ordered zone list.
	AvailabilityZones map[string][]string `yaml:"availability_zones" mapstructure:"availability_zones"`

	// Region scopes zone lookups and DNS resolution.
	Region string `yaml:"region" mapstructure:"region"`

	// UseDNS enables DNS TXT based server resolution.
	UseDNS bool `yaml:"use_dns" mapstructure:"use_dns"`

	// ClusterRefreshInterval is the DNS re-resolution period.
	ClusterRefreshInterval time.Duration `yaml:"cluster_refresh_interval" mapstructure:"cluster_refresh_interval"`

	// PreferSameZone places same-zone servers first.
	PreferSameZone bool `yaml:"prefer_same_zone" mapstructure:"prefer_same_zone"`

	// HeartbeatInterval is the lease renewal period.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`

	// RegistryFetchInterval is the registry polling period.
	RegistryFetchInterval time.Duration `yaml:"registry_fetch_interval" mapstructure:"registry_fetch_interval"`

	// MaxRetries and RequestRetryDelay shape the request pipeline's
	// linear backoff.
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestRetryDelay time.Duration `yaml:"request_retry_delay" mapstructure:"request_retry_delay"`

	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	// RegisterWithEureka controls whether this instance registers itself.
	RegisterWithEureka bool `yaml:"register_with_eureka" mapstructure:"register_with_eureka"`

	// FetchRegistry controls whether the local registry cache is kept.
	FetchRegistry bool `yaml:"fetch_registry" mapstructure:"fetch_registry"`

	// FilterUpInstances indexes only UP instances when set.
	FilterUpInstances bool `yaml:"filter_up_instances" mapstructure:"filter_up_instances"`

	// UseDelta switches to incremental fetches after the first full one.
	UseDelta bool `yaml:"use_delta" mapstructure:"use_delta"`

	// FetchMetadata pulls cloud metadata before registering (Amazon only).
	FetchMetadata bool `yaml:"fetch_metadata" mapstructure:"fetch_metadata"`

	// MetadataEndpoint overrides the cloud metadata service URL.
	MetadataEndpoint string `yaml:"metadata_endpoint" mapstructure:"metadata_endpoint"`

	// WaitForRegistryUpdate blocks Start until the instance's own VIP
	// address appears in a fetched snapshot.
	WaitForRegistryUpdate bool `yaml:"wait_for_registry_update" mapstructure:"wait_for_registry_update"`

	// RegistryUpdatePoll is the polling period for that wait.
	RegistryUpdatePoll time.Duration `yaml:"registry_update_poll" mapstructure:"registry_update_poll"`
}

// ApplyDefaults fills zero-valued non-boolean fields. Booleans default
// through the Builder, which can tell "unset" from "false".
func (c *Config) ApplyDefaults() {
	c.Logger.ApplyDefaults()

	if c.Instance.DataCenter == "" {
		c.Instance.DataCenter = DataCenterMyOwn
	}
	if c.Instance.InstanceID == "" && c.Instance.App != "" {
		c.Instance.InstanceID = fmt.Sprintf("%s:%s", strings.ToLower(c.Instance.App), uuid.NewString())
	}

	e := &c.Eureka
	if e.ServicePath == "" {
		e.ServicePath = "/eureka/v2/apps/"
	}
	if e.Port == 0 {
		e.Port = 8761
	}
	if e.HeartbeatInterval <= 0 {
		e.HeartbeatInterval = 30 * time.Second
	}
	if e.RegistryFetchInterval <= 0 {
		e.RegistryFetchInterval = 30 * time.Second
	}
	if e.ClusterRefreshInterval <= 0 {
		e.ClusterRefreshInterval = 5 * time.Minute
	}
	if e.MaxRetries <= 0 {
		e.MaxRetries = 3
	}
	if e.RequestRetryDelay <= 0 {
		e.RequestRetryDelay = 500 * time.Millisecond
	}
	if e.RequestTimeout <= 0 {
		e.RequestTimeout = 30 * time.Second
	}
	if e.RegistryUpdatePoll <= 0 {
		e.RegistryUpdatePoll = 2 * time.Second
	}
}

// Validate checks required fields and cross-field consistency. It is run
// once by the Builder after all layers merge.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	e := &c.Eureka
	if e.UseDNS {
		if e.Host == "" {
			return fmt.Errorf("%w: eureka.host is required for dns resolution", ErrInvalidConfig)
		}
		if e.Region == "" {
			return fmt.Errorf("%w: eureka.region is required for dns resolution", ErrInvalidConfig)
		}
		return nil
	}
	if len(e.ServiceURLs) == 0 && e.Host == "" {
		return fmt.Errorf("%w: either eureka.service_urls or eureka.host must be set", ErrInvalidConfig)
	}
	return nil
}

// InstanceZone returns the availability zone the instance runs in, from
// its metadata map.
func (c *Config) InstanceZone() string {
	return c.Instance.Metadata[ZoneMetadataKey]
}

// ZoneMetadataKey is the instance metadata key carrying the availability
// zone.
const ZoneMetadataKey = "availability-zone"
