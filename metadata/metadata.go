package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/eureka/logger"
)

const defaultEndpoint = "http://169.254.169.254"

// Standard metadata keys produced by Fetch.
const (
	KeyAMIID            = "ami-id"
	KeyInstanceID       = "instance-id"
	KeyInstanceType     = "instance-type"
	KeyLocalIPv4        = "local-ipv4"
	KeyLocalHostname    = "local-hostname"
	KeyPublicHostname   = "public-hostname"
	KeyPublicIPv4       = "public-ipv4"
	KeyMAC              = "mac"
	KeyAvailabilityZone = "availability-zone"
	KeyVPCID            = "vpc-id"
	KeyAccountID        = "accountId"
)

// simple metadata paths, fetched concurrently on the first pass.
var metadataPaths = map[string]string{
	KeyAMIID:            "latest/meta-data/ami-id",
	KeyInstanceID:       "latest/meta-data/instance-id",
	KeyInstanceType:     "latest/meta-data/instance-type",
	KeyLocalIPv4:        "latest/meta-data/local-ipv4",
	KeyLocalHostname:    "latest/meta-data/local-hostname",
	KeyPublicHostname:   "latest/meta-data/public-hostname",
	KeyPublicIPv4:       "latest/meta-data/public-ipv4",
	KeyMAC:              "latest/meta-data/mac",
	KeyAvailabilityZone: "latest/meta-data/placement/availability-zone",
}

// Config configures the metadata fetcher.
type Config struct {
	// Endpoint is the metadata service base URL. Defaults to the
	// link-local EC2 endpoint.
	Endpoint string
	// Timeout bounds each metadata call.
	Timeout time.Duration
}

// Fetcher retrieves instance metadata from the cloud metadata service.
type Fetcher struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config, log *logger.Logger) *Fetcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log.WithComponent("metadata"),
	}
}

// Fetch collects all metadata values concurrently. Paths that fail are
// logged and omitted; the call itself never errors.
func (f *Fetcher) Fetch(ctx context.Context) map[string]string {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		values = make(map[string]string, len(metadataPaths)+2)
	)

	for key, path := range metadataPaths {
		key, path := key, path
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := f.get(ctx, path)
			if err != nil {
				f.log.Debug("metadata value unavailable", logger.Fields("key", key, logger.FieldError, err.Error()))
				return
			}
			mu.Lock()
			values[key] = value
			mu.Unlock()
		}()
	}
	wg.Wait()

	// The VPC id hangs off the interface's MAC path, so it needs the
	// first pass to finish.
	if mac, ok := values[KeyMAC]; ok {
		if vpc, err := f.get(ctx, "latest/meta-data/network/interfaces/macs/"+mac+"/vpc-id"); err == nil {
			values[KeyVPCID] = vpc
		}
	}
	if account, err := f.accountID(ctx); err == nil && account != "" {
		values[KeyAccountID] = account
	}

	f.log.Debug("instance metadata fetched", logger.Fields("keys", len(values)))
	return values
}

func (f *Fetcher) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"/"+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}
	return strings.TrimSpace(string(body)), nil
}

// accountID comes from the instance identity document rather than a
// plain metadata path.
func (f *Fetcher) accountID(ctx context.Context) (string, error) {
	raw, err := f.get(ctx, "latest/dynamic/instance-identity/document")
	if err != nil {
		return "", err
	}
	var doc struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", err
	}
	return doc.AccountID, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("metadata service returned HTTP %d", e.code)
}
