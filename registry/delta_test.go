package registry

import (
	"reflect"
	"testing"
)

func deltaInstance(host string, port int, vip string, status StatusType, action ActionType) Instance {
	inst := upInstance(host, port, vip)
	inst.Status = status
	inst.ActionType = action
	return inst
}

func deltaBatch(name string, insts ...Instance) []Application {
	return []Application{{Name: name, Instances: insts}}
}

func TestApplyDelta_AddedIsIdempotent(t *testing.T) {
	add := deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionAdded))

	once := NewCache()
	ApplyDelta(once, add, true)

	twice := NewCache()
	ApplyDelta(twice, add, true)
	ApplyDelta(twice, add, true)

	if !reflect.DeepEqual(once, twice) {
		t.Error("applying the same ADDED twice must equal applying it once")
	}
	if len(twice.InstancesByAppID("svc")) != 1 {
		t.Errorf("expected 1 instance, got %d", len(twice.InstancesByAppID("svc")))
	}
}

func TestApplyDelta_AddOrderIndependent(t *testing.T) {
	a := deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionAdded)
	b := deltaInstance("h2", 8080, "svc.vip", StatusUp, ActionAdded)

	ab := NewCache()
	ApplyDelta(ab, deltaBatch("svc", a, b), true)

	ba := NewCache()
	ApplyDelta(ba, deltaBatch("svc", b, a), true)

	gotAB := ab.InstancesByVipAddress("svc.vip")
	gotBA := ba.InstancesByVipAddress("svc.vip")
	if len(gotAB) != 2 || len(gotBA) != 2 {
		t.Fatalf("expected 2 instances each, got %d and %d", len(gotAB), len(gotBA))
	}

	hosts := func(insts []Instance) map[string]bool {
		m := make(map[string]bool)
		for _, i := range insts {
			m[i.HostName] = true
		}
		return m
	}
	if !reflect.DeepEqual(hosts(gotAB), hosts(gotBA)) {
		t.Error("disjoint ADDs must commute")
	}
}

func TestApplyDelta_AddedRespectsUpFilter(t *testing.T) {
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusDown, ActionAdded)), true)

	if len(c.InstancesByAppID("svc")) != 0 {
		t.Error("a DOWN ADDED must be skipped when filtering is enabled")
	}

	// With filtering disabled the same delta lands.
	c = NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusDown, ActionAdded)), false)
	if len(c.InstancesByAppID("svc")) != 1 {
		t.Error("a DOWN ADDED must land when filtering is disabled")
	}
}

func TestApplyDelta_ModifiedBypassesUpFilter(t *testing.T) {
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionAdded)), true)

	// The modification carries status DOWN and a changed IP; it must still
	// replace the cached UP instance.
	mod := deltaInstance("h1", 8080, "svc.vip", StatusDown, ActionModified)
	mod.IPAddr = "10.9.9.9"
	ApplyDelta(c, deltaBatch("svc", mod), true)

	got := c.InstancesByAppID("svc")
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}
	if got[0].Status != StatusDown {
		t.Errorf("expected status DOWN after modify, got %s", got[0].Status)
	}
	if got[0].IPAddr != "10.9.9.9" {
		t.Errorf("expected updated IP, got %s", got[0].IPAddr)
	}

	byVip := c.InstancesByVipAddress("svc.vip")
	if len(byVip) != 1 || byVip[0].Status != StatusDown {
		t.Error("modify must replace the vip index entry too")
	}
}

func TestApplyDelta_ModifiedFallsBackToAdded(t *testing.T) {
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionModified)), true)

	if len(c.InstancesByAppID("svc")) != 1 {
		t.Error("a MODIFIED with no existing match must insert like ADDED")
	}
}

func TestApplyDelta_DeletedRemovesEverywhere(t *testing.T) {
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc",
		deltaInstance("h1", 8080, "vip-a,vip-b", StatusUp, ActionAdded),
		deltaInstance("h2", 8080, "vip-a", StatusUp, ActionAdded),
	), true)

	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "vip-a,vip-b", StatusUp, ActionDeleted)), true)

	if len(c.InstancesByVipAddress("vip-a")) != 1 {
		t.Errorf("expected only h2 under vip-a, got %d", len(c.InstancesByVipAddress("vip-a")))
	}
	if len(c.InstancesByVipAddress("vip-b")) != 0 {
		t.Error("expected vip-b slot emptied")
	}
	if len(c.InstancesByAppID("svc")) != 1 {
		t.Error("expected only h2 left in the app index")
	}
}

func TestApplyDelta_DeleteAbsentIsNoop(t *testing.T) {
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionAdded)), true)
	before := c.InstancesByAppID("svc")

	ApplyDelta(c, deltaBatch("svc", deltaInstance("ghost", 1234, "svc.vip", StatusUp, ActionDeleted)), true)

	after := c.InstancesByAppID("svc")
	if !reflect.DeepEqual(before, after) {
		t.Error("deleting an absent instance must leave the cache unchanged")
	}
}

func TestApplyDelta_MatchIgnoresOtherFields(t *testing.T) {
	// Delete matches on (hostName, port) even when every other field differs.
	c := NewCache()
	ApplyDelta(c, deltaBatch("svc", deltaInstance("h1", 8080, "svc.vip", StatusUp, ActionAdded)), true)

	del := deltaInstance("h1", 8080, "svc.vip", StatusUnknown, ActionDeleted)
	del.IPAddr = "completely-different"
	ApplyDelta(c, deltaBatch("svc", del), true)

	if len(c.InstancesByAppID("svc")) != 0 {
		t.Error("delete must match by hostName and port only")
	}
}

func TestApplyDelta_ThroughStore(t *testing.T) {
	s := NewStore(true, nil)
	s.ReplaceSnapshot([]Application{
		{Name: "svc", Instances: instanceList{upInstance("h1", 8080, "svc.vip")}},
	})

	s.ApplyDelta(deltaBatch("svc", deltaInstance("h2", 8080, "svc.vip", StatusUp, ActionAdded)))

	if got := len(s.InstancesByVipAddress("svc.vip")); got != 2 {
		t.Errorf("expected 2 instances after delta, got %d", got)
	}
}
