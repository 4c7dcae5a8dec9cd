package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/eureka/config"
	"github.com/kbukum/eureka/logger"
	"github.com/kbukum/eureka/registry"
	"github.com/kbukum/eureka/resolver"
	"github.com/kbukum/eureka/transport"
)

var (
	// ErrAlreadyStarted is returned by Start on a client that is already
	// running or has been stopped.
	ErrAlreadyStarted = errors.New("client already started")
	// ErrNilConfig is returned by New when no configuration is given.
	ErrNilConfig = errors.New("configuration is required")
)

// slowStartWarning is how long Start may run before a warning is logged.
const slowStartWarning = 40 * time.Second

// Client registers the local instance with the discovery servers, keeps
// its lease alive, and mirrors the remote registry into a local cache.
type Client struct {
	cfg        *config.Config
	log        *logger.Logger
	store      *registry.Store
	middleware transport.Middleware

	// set during Start
	instance   *registry.Instance
	dcMetadata map[string]string
	pipeline   *transport.Pipeline
	dns        *resolver.DNS

	// fullFetched flips after the first successful full fetch; delta
	// fetching only engages past that point.
	fullFetched atomic.Bool

	mu     sync.Mutex
	state  State
	subs   []chan Signal
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Client beyond what configuration covers.
type Option func(*Client)

// WithMiddleware installs a request middleware on the client's
// transport pipeline. The middleware sees every outgoing request;
// returning a nil request without an error aborts the call.
func WithMiddleware(mw transport.Middleware) Option {
	return func(c *Client) { c.middleware = mw }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client from a configuration produced by config.Build.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	c := &Client{
		cfg:   cfg,
		log:   logger.New(&cfg.Logger, cfg.Instance.App).WithComponent("eureka-client"),
		state: StateUnregistered,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = registry.NewStore(cfg.Eureka.FilterUpInstances, c.log)
	return c, nil
}

// Start registers the instance, performs the initial registry fetch, and
// launches the heartbeat and registry polling loops. It returns once the
// client is fully up. A second Start returns ErrAlreadyStarted; a failed
// Start leaves the client restartable.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnregistered {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateRegistering
	c.mu.Unlock()

	slow := time.AfterFunc(slowStartWarning, func() {
		c.log.Warn("startup has not completed yet, the discovery servers may be unreachable")
	})
	defer slow.Stop()

	if err := c.startUp(ctx); err != nil {
		c.setState(StateUnregistered)
		return err
	}
	c.startLoops()
	c.publish(SignalStarted)
	c.log.Info("discovery client started", logger.Fields(
		logger.FieldApp, c.cfg.Instance.App,
		logger.FieldInstance, c.cfg.Instance.InstanceID,
	))
	return nil
}

func (c *Client) startUp(ctx context.Context) error {
	e := &c.cfg.Eureka

	if c.cfg.Instance.DataCenter == config.DataCenterAmazon && e.FetchMetadata {
		c.applyInstanceMetadata(ctx)
	}
	c.instance = buildInstance(c.cfg, c.dcMetadata)

	res, err := c.buildResolver()
	if err != nil {
		return err
	}
	c.pipeline = transport.New(transport.Config{
		MaxRetries: e.MaxRetries,
		RetryDelay: e.RequestRetryDelay,
		Timeout:    e.RequestTimeout,
		Middleware: c.middleware,
	}, res, c.log)

	if e.RegisterWithEureka {
		if err := c.register(ctx); err != nil {
			c.closeDNS()
			return err
		}
	}
	if e.FetchRegistry {
		if err := c.fetchRegistry(ctx); err != nil {
			c.rollBack(ctx)
			return err
		}
		if e.RegisterWithEureka && e.WaitForRegistryUpdate {
			if err := c.waitForSelf(ctx); err != nil {
				c.rollBack(ctx)
				return err
			}
		}
	}
	return nil
}

// rollBack undoes a partially completed startup so the client can be
// started again. The deregistration is best effort.
func (c *Client) rollBack(ctx context.Context) {
	if c.cfg.Eureka.RegisterWithEureka {
		_ = c.deregister(ctx)
	}
	c.closeDNS()
}

func (c *Client) buildResolver() (resolver.ClusterResolver, error) {
	e := &c.cfg.Eureka
	if e.UseDNS {
		d, err := resolver.NewDNS(resolver.DNSConfig{
			Host:            e.Host,
			Region:          e.Region,
			Port:            e.Port,
			ServicePath:     e.ServicePath,
			Secure:          e.SSL,
			PreferSameZone:  e.PreferSameZone,
			InstanceZone:    c.cfg.InstanceZone(),
			RefreshInterval: e.ClusterRefreshInterval,
		}, c.log)
		if err != nil {
			return nil, err
		}
		c.dns = d
		return d, nil
	}
	return resolver.NewStatic(resolver.StaticConfig{
		Host:              e.Host,
		Port:              e.Port,
		ServicePath:       e.ServicePath,
		Secure:            e.SSL,
		ServiceURLs:       e.ServiceURLs,
		AvailabilityZones: e.AvailabilityZones,
		Region:            e.Region,
		PreferSameZone:    e.PreferSameZone,
		InstanceZone:      c.cfg.InstanceZone(),
	})
}

func (c *Client) closeDNS() {
	if c.dns != nil {
		_ = c.dns.Close()
		c.dns = nil
	}
}

// startLoops moves the client to Registered and arms the background
// loops. The state transition, the cancel function, and the WaitGroup
// adds happen under one lock acquisition so a concurrent Stop either
// sees the client not yet Registered, or sees a cancel function and
// counters that cover every loop about to run.
func (c *Client) startLoops() {
	runCtx, cancel := context.WithCancel(context.Background())
	e := &c.cfg.Eureka

	c.mu.Lock()
	c.state = StateRegistered
	c.cancel = cancel
	if e.RegisterWithEureka {
		c.wg.Add(1)
	}
	if e.FetchRegistry {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	if e.RegisterWithEureka {
		go c.heartbeatLoop(runCtx, e.HeartbeatInterval)
	}
	if e.FetchRegistry {
		go c.fetchLoop(runCtx, e.RegistryFetchInterval)
	}
}

// Stop cancels the background loops, deregisters the instance, and
// closes subscriber channels. Stopping a client that never started, or
// stopping twice, is a no-op.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRegistered {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDeregistering
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.closeDNS()

	var err error
	if c.cfg.Eureka.RegisterWithEureka {
		if err = c.deregister(ctx); err == nil {
			c.publish(SignalDeregistered)
		}
	}
	c.setState(StateStopped)
	c.closeSubscribers()
	c.log.Info("discovery client stopped")
	return err
}

// InstancesByAppID returns the cached instances of an application.
func (c *Client) InstancesByAppID(appID string) []registry.Instance {
	return c.store.InstancesByAppID(appID)
}

// InstancesByVipAddress returns the cached instances serving a VIP
// address.
func (c *Client) InstancesByVipAddress(vip string) []registry.Instance {
	return c.store.InstancesByVipAddress(vip)
}

// AppNames returns the application names currently cached.
func (c *Client) AppNames() []string {
	return c.store.AppNames()
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) appPath() string {
	return c.instance.App
}

func (c *Client) instancePath() string {
	return c.instance.App + "/" + c.instance.InstanceID
}

// register POSTs the instance descriptor. The server acknowledges a
// registration with 204 and nothing else; any other status is a failure
// carrying the status and body.
func (c *Client) register(ctx context.Context) error {
	body, err := json.Marshal(registry.Registration{Instance: c.instance})
	if err != nil {
		return fmt.Errorf("encoding registration: %w", err)
	}
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   c.appPath(),
		Body:   body,
	})
	if err == nil && resp.StatusCode != http.StatusNoContent {
		err = transport.NewProtocolError(resp.StatusCode, resp.Body)
	}
	if err != nil {
		return fmt.Errorf("registering with discovery server: %w", err)
	}
	c.log.Info("registered with discovery server", logger.Fields(
		logger.FieldApp, c.instance.App,
		logger.FieldInstance, c.instance.InstanceID,
	))
	c.publish(SignalRegistered)
	return nil
}

// deregister DELETEs the instance record; the server answers 200.
func (c *Client) deregister(ctx context.Context) error {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   c.instancePath(),
	})
	if err == nil && resp.StatusCode != http.StatusOK {
		err = transport.NewProtocolError(resp.StatusCode, resp.Body)
	}
	if err != nil {
		c.log.Warn("deregistration failed", logger.ErrorFields("deregister", err))
		return fmt.Errorf("deregistering instance: %w", err)
	}
	c.log.Info("deregistered from discovery server", logger.Fields(
		logger.FieldInstance, c.instance.InstanceID,
	))
	return nil
}

func (c *Client) heartbeatLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.renew(ctx)
		}
	}
}

// renew sends one heartbeat. Only 200 renews the lease. A 404 means the
// server evicted the lease, so the instance re-registers; other failures
// are logged and the next tick tries again.
func (c *Client) renew(ctx context.Context) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   c.instancePath(),
	})
	switch {
	case err == nil && resp.StatusCode == http.StatusOK:
		c.log.Debug("heartbeat sent", logger.Fields(logger.FieldInstance, c.instance.InstanceID))
		c.publish(SignalHeartbeat)
	case err == nil:
		c.log.Warn("heartbeat returned unexpected status", logger.Fields(
			logger.FieldInstance, c.instance.InstanceID,
			logger.FieldStatus, resp.StatusCode,
		))
	case transport.StatusCode(err) == http.StatusNotFound:
		c.log.Warn("lease expired on the server, re-registering", logger.Fields(
			logger.FieldInstance, c.instance.InstanceID,
		))
		if rerr := c.register(ctx); rerr != nil {
			c.log.Error("re-registration failed", logger.ErrorFields("register", rerr))
		}
	default:
		c.log.Warn("heartbeat failed", logger.ErrorFields("heartbeat", err))
	}
}

func (c *Client) fetchLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.fetchRegistry(ctx); err != nil {
				c.log.Warn("registry fetch failed", logger.ErrorFields("fetch", err))
			}
		}
	}
}

// fetchRegistry pulls the registry and updates the local cache. Full
// fetches replace the cache; once a full fetch has succeeded and delta
// fetching is enabled, later fetches apply incremental batches.
func (c *Client) fetchRegistry(ctx context.Context) error {
	useDelta := c.cfg.Eureka.UseDelta && c.fullFetched.Load()
	path := ""
	if useDelta {
		path = "delta"
	}

	resp, err := c.pipeline.Do(ctx, transport.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	apps, err := registry.ParseRegistry(resp.Body)
	if err != nil {
		return transport.NewParseError(err)
	}

	if useDelta {
		c.store.ApplyDelta(apps)
	} else {
		c.store.ReplaceSnapshot(apps)
		c.fullFetched.Store(true)
	}
	c.log.Debug("registry cache updated", logger.Fields("apps", len(apps), "delta", useDelta))
	c.publish(SignalRegistryUpdated)
	return nil
}

// waitForSelf polls the registry until this instance shows up under its
// own VIP address, bounded by ctx.
func (c *Client) waitForSelf(ctx context.Context) error {
	vip := strings.SplitN(c.instance.VipAddress, ",", 2)[0]
	poll := c.cfg.Eureka.RegistryUpdatePoll

	for {
		for _, inst := range c.store.InstancesByVipAddress(vip) {
			if inst.SameIdentity(c.instance) {
				return nil
			}
		}
		c.log.Debug("waiting for own registration to appear", logger.Fields("vip", vip))

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for registry to include this instance: %w", ctx.Err())
		case <-time.After(poll):
		}
		if err := c.fetchRegistry(ctx); err != nil {
			c.log.Warn("registry fetch failed while waiting", logger.ErrorFields("fetch", err))
		}
	}
}
