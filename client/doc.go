// Package client implements the discovery client lifecycle: register
// the local instance, renew its lease on a heartbeat, keep a local
// registry cache fresh, and deregister on shutdown.
//
// A Client moves through an explicit state machine (unregistered,
// registering, registered, deregistering, stopped) and emits lifecycle
// signals that callers can observe through Subscribe.
//
//	cfg, err := config.NewBuilder().WithConfigFile("eureka.yml").Build()
//	c, err := client.New(cfg)
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Stop(context.Background())
//
//	instances := c.InstancesByVipAddress("payments.example.com")
package client
