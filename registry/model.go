package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StatusType is the lifecycle status of an instance.
type StatusType string

const (
	StatusUp           StatusType = "UP"
	StatusDown         StatusType = "DOWN"
	StatusStarting     StatusType = "STARTING"
	StatusOutOfService StatusType = "OUT_OF_SERVICE"
	StatusUnknown      StatusType = "UNKNOWN"
)

// ActionType marks an instance inside a delta batch.
type ActionType string

const (
	ActionAdded    ActionType = "ADDED"
	ActionModified ActionType = "MODIFIED"
	ActionDeleted  ActionType = "DELETED"
)

// DataCenterInfo identifies the data center an instance runs in.
type DataCenterInfo struct {
	Class    string            `json:"@class,omitempty"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LeaseInfo carries server-side lease bookkeeping for an instance.
type LeaseInfo struct {
	RenewalIntervalInSecs int   `json:"renewalIntervalInSecs,omitempty"`
	DurationInSecs        int   `json:"durationInSecs,omitempty"`
	RegistrationTimestamp int64 `json:"registrationTimestamp,omitempty"`
	LastRenewalTimestamp  int64 `json:"lastRenewalTimestamp,omitempty"`
	EvictionTimestamp     int64 `json:"evictionTimestamp,omitempty"`
	ServiceUpTimestamp    int64 `json:"serviceUpTimestamp,omitempty"`
}

// Port is the Eureka port object. The wire format uses "$" for the value
// and "@enabled" for the flag, and servers disagree on whether those are
// numbers, booleans, or strings, so unmarshalling accepts all of them.
type Port struct {
	Enabled bool
	Value   int
}

type portWire struct {
	Enabled json.RawMessage `json:"@enabled,omitempty"`
	Value   json.RawMessage `json:"$,omitempty"`
}

// MarshalJSON encodes the port in the canonical Eureka form.
func (p Port) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"$":        p.Value,
		"@enabled": strconv.FormatBool(p.Enabled),
	})
}

// UnmarshalJSON accepts numeric, string, and boolean spellings of both fields.
func (p *Port) UnmarshalJSON(data []byte) error {
	var w portWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Value) > 0 {
		v, err := looseInt(w.Value)
		if err != nil {
			return fmt.Errorf("port value: %w", err)
		}
		p.Value = v
	}
	if len(w.Enabled) > 0 {
		b, err := looseBool(w.Enabled)
		if err != nil {
			return fmt.Errorf("port enabled: %w", err)
		}
		p.Enabled = b
	}
	return nil
}

func looseInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func looseBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, err
	}
	return strconv.ParseBool(s)
}

// Instance describes one running process of a registered application.
type Instance struct {
	InstanceID           string            `json:"instanceId,omitempty"`
	App                  string            `json:"app,omitempty"`
	HostName             string            `json:"hostName"`
	IPAddr               string            `json:"ipAddr"`
	VipAddress           string            `json:"vipAddress,omitempty"`
	SecureVipAddress     string            `json:"secureVipAddress,omitempty"`
	Status               StatusType        `json:"status"`
	OverriddenStatus     StatusType        `json:"overriddenstatus,omitempty"`
	Port                 *Port             `json:"port,omitempty"`
	SecurePort           *Port             `json:"securePort,omitempty"`
	HomePageURL          string            `json:"homePageUrl,omitempty"`
	StatusPageURL        string            `json:"statusPageUrl,omitempty"`
	HealthCheckURL       string            `json:"healthCheckUrl,omitempty"`
	DataCenterInfo       DataCenterInfo    `json:"dataCenterInfo"`
	LeaseInfo            *LeaseInfo        `json:"leaseInfo,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	LastUpdatedTimestamp int64             `json:"lastUpdatedTimestamp,omitempty"`
	LastDirtyTimestamp   int64             `json:"lastDirtyTimestamp,omitempty"`
	ActionType           ActionType        `json:"actionType,omitempty"`
}

// PortValue returns the plain port number, or 0 when no port is set.
func (i *Instance) PortValue() int {
	if i.Port == nil {
		return 0
	}
	return i.Port.Value
}

// SameIdentity reports whether two instances describe the same process.
// Identity is (hostName, port); every other field is ignored.
func (i *Instance) SameIdentity(o *Instance) bool {
	return i.HostName == o.HostName && i.PortValue() == o.PortValue()
}

// Application is one app entry in a registry payload.
type Application struct {
	Name      string       `json:"name"`
	Instances instanceList `json:"instance"`
}

// Registration is the body POSTed to the registry server on register.
type Registration struct {
	Instance *Instance `json:"instance"`
}

// Applications is the "applications" envelope of full and delta payloads.
type Applications struct {
	VersionsDelta string          `json:"versions__delta,omitempty"`
	AppsHashcode  string          `json:"apps__hashcode,omitempty"`
	Applications  applicationList `json:"application"`
}

type registryEnvelope struct {
	Applications Applications `json:"applications"`
}

// ParseRegistry decodes a full or delta registry payload. The wire format
// may encode a single application (or a single instance inside an app) as
// a bare object rather than a one-element list; both are normalized here.
func ParseRegistry(data []byte) ([]Application, error) {
	var env registryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse registry payload: %w", err)
	}
	return env.Applications.Applications, nil
}

// instanceList tolerates "instance" being a bare object or an array.
type instanceList []Instance

func (l *instanceList) UnmarshalJSON(data []byte) error {
	if isJSONArray(data) {
		var arr []Instance
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var one Instance
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = instanceList{one}
	return nil
}

// applicationList tolerates "application" being a bare object or an array.
type applicationList []Application

func (l *applicationList) UnmarshalJSON(data []byte) error {
	if isJSONArray(data) {
		var arr []Application
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var one Application
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = applicationList{one}
	return nil
}

func isJSONArray(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
