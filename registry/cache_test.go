package registry

import (
	"testing"
)

func upInstance(host string, port int, vip string) Instance {
	return Instance{
		HostName:   host,
		IPAddr:     "10.0.0.1",
		VipAddress: vip,
		Status:     StatusUp,
		Port:       &Port{Enabled: true, Value: port},
	}
}

func TestBuildCache_IndexesByAppAndVip(t *testing.T) {
	apps := []Application{
		{Name: "jqservice", Instances: instanceList{upInstance("host-1", 8080, "jq.test.com")}},
		{Name: "other", Instances: instanceList{upInstance("host-2", 9090, "other.test.com")}},
	}

	c := BuildCache(apps, true)

	if len(c.ByApp) != 2 {
		t.Fatalf("expected 2 app index keys, got %d", len(c.ByApp))
	}
	if _, ok := c.ByApp["JQSERVICE"]; !ok {
		t.Error("app index keys must be upper-cased")
	}

	got := c.InstancesByAppID("jqservice")
	if len(got) != 1 {
		t.Fatalf("expected 1 instance for jqservice, got %d", len(got))
	}
	byVip := c.InstancesByVipAddress("jq.test.com")
	if len(byVip) != 1 {
		t.Fatalf("expected 1 instance for jq.test.com, got %d", len(byVip))
	}
	if byVip[0].HostName != got[0].HostName {
		t.Error("app index and vip index must hold the same instance")
	}
}

func TestBuildCache_CommaSplitVips(t *testing.T) {
	apps := []Application{
		{Name: "multi", Instances: instanceList{upInstance("host-1", 8080, "vip-a,vip-b")}},
	}

	c := BuildCache(apps, true)

	if len(c.InstancesByVipAddress("vip-a")) != 1 {
		t.Error("expected instance under vip-a")
	}
	if len(c.InstancesByVipAddress("vip-b")) != 1 {
		t.Error("expected instance under vip-b")
	}
	if len(c.ByVip) != 2 {
		t.Errorf("expected 2 vip keys, got %d", len(c.ByVip))
	}
}

func TestBuildCache_FiltersNonUp(t *testing.T) {
	down := upInstance("host-down", 8080, "svc.test.com")
	down.Status = StatusDown
	apps := []Application{
		{Name: "svc", Instances: instanceList{upInstance("host-up", 8080, "svc.test.com"), down}},
	}

	c := BuildCache(apps, true)
	if got := len(c.InstancesByAppID("svc")); got != 1 {
		t.Errorf("expected only UP instance indexed, got %d", got)
	}

	// Filtering disabled keeps everything.
	c = BuildCache(apps, false)
	if got := len(c.InstancesByAppID("svc")); got != 2 {
		t.Errorf("expected both instances indexed, got %d", got)
	}
	if got := len(c.InstancesByVipAddress("svc.test.com")); got != 2 {
		t.Errorf("expected both instances under vip, got %d", got)
	}
}

func TestBuildCache_ReplacesNotMerges(t *testing.T) {
	first := []Application{
		{Name: "svc", Instances: instanceList{upInstance("host-old", 8080, "old.vip")}},
	}
	second := []Application{
		{Name: "svc", Instances: instanceList{upInstance("host-new", 8080, "new.vip")}},
	}

	s := NewStore(true, nil)
	s.ReplaceSnapshot(first)
	s.ReplaceSnapshot(second)

	if got := s.InstancesByVipAddress("old.vip"); got != nil {
		t.Errorf("old vip entries must not survive a full rebuild, got %v", got)
	}
	if len(s.InstancesByVipAddress("new.vip")) != 1 {
		t.Error("expected instance under new.vip")
	}
}

func TestStore_AccessorsReturnCopies(t *testing.T) {
	s := NewStore(true, nil)
	s.ReplaceSnapshot([]Application{
		{Name: "svc", Instances: instanceList{upInstance("host-1", 8080, "svc.vip")}},
	})

	got := s.InstancesByAppID("svc")
	got[0].HostName = "mutated"

	if s.InstancesByAppID("svc")[0].HostName != "host-1" {
		t.Error("accessor must return a copy, not the indexed slice")
	}
}
