package client

import (
	"context"

	"github.com/kbukum/eureka/config"
	"github.com/kbukum/eureka/logger"
	"github.com/kbukum/eureka/metadata"
	"github.com/kbukum/eureka/registry"
)

// Data center @class values expected by Netflix-lineage servers.
const (
	classDefaultDataCenter = "com.netflix.appinfo.InstanceInfo$DefaultDataCenterInfo"
	classAmazonDataCenter  = "com.netflix.appinfo.AmazonInfo"
)

// buildInstance assembles the wire descriptor for the local instance
// from the merged configuration. dcMeta carries cloud metadata values
// for the Amazon data center form; nil otherwise.
func buildInstance(cfg *config.Config, dcMeta map[string]string) *registry.Instance {
	ic := cfg.Instance

	inst := &registry.Instance{
		InstanceID:       ic.InstanceID,
		App:              ic.App,
		HostName:         ic.HostName,
		IPAddr:           ic.IPAddr,
		VipAddress:       ic.VipAddress,
		SecureVipAddress: ic.SecureVipAddress,
		Status:           registry.StatusUp,
		Port:             &registry.Port{Value: ic.Port, Enabled: true},
		HomePageURL:      ic.HomePageURL,
		StatusPageURL:    ic.StatusPageURL,
		HealthCheckURL:   ic.HealthCheckURL,
		Metadata:         ic.Metadata,
	}
	if ic.SecurePort > 0 {
		inst.SecurePort = &registry.Port{Value: ic.SecurePort, Enabled: true}
	}

	switch ic.DataCenter {
	case config.DataCenterAmazon:
		inst.DataCenterInfo = registry.DataCenterInfo{
			Class:    classAmazonDataCenter,
			Name:     config.DataCenterAmazon,
			Metadata: dcMeta,
		}
	default:
		inst.DataCenterInfo = registry.DataCenterInfo{
			Class: classDefaultDataCenter,
			Name:  config.DataCenterMyOwn,
		}
	}
	return inst
}

// applyInstanceMetadata queries the cloud metadata service and folds the
// results into the configuration before the instance descriptor is
// built: the advertised host and address come from the metadata, and the
// availability zone feeds resolver affinity.
func (c *Client) applyInstanceMetadata(ctx context.Context) {
	f := metadata.NewFetcher(metadata.Config{Endpoint: c.cfg.Eureka.MetadataEndpoint}, c.log)
	values := f.Fetch(ctx)
	if len(values) == 0 {
		c.log.Warn("no instance metadata available, keeping configured host and address")
		return
	}

	ic := &c.cfg.Instance
	if host := firstNonEmpty(values[metadata.KeyPublicHostname], values[metadata.KeyLocalHostname]); host != "" {
		ic.HostName = host
	}
	if addr := values[metadata.KeyLocalIPv4]; addr != "" {
		ic.IPAddr = addr
	}
	if zone := values[metadata.KeyAvailabilityZone]; zone != "" {
		if ic.Metadata == nil {
			ic.Metadata = make(map[string]string, 1)
		}
		ic.Metadata[config.ZoneMetadataKey] = zone
	}
	c.dcMetadata = values

	c.log.Info("instance metadata applied", logger.Fields(
		"host", ic.HostName,
		"zone", values[metadata.KeyAvailabilityZone],
	))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
