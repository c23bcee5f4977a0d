package connectivity

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestNetlinkMonitorNilSafety(t *testing.T) {
	var m *netlinkMonitor
	if m.Running() {
		t.Error("expected Running() to return false for nil monitor")
	}
	m.Stop()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}
}

func TestNetlinkMonitorStopUnstarted(t *testing.T) {
	m := newNetlinkMonitor(nil, nil)
	m.Stop()
	if m.Running() {
		t.Error("expected Running() to return false after Stop on unstarted monitor")
	}
}

func TestBuildMatcherMatchesNetEvents(t *testing.T) {
	matcher := buildMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}

	tests := []struct {
		name   string
		event  netlink.UEvent
		expect bool
	}{
		{
			name: "link added",
			event: netlink.UEvent{
				Action: netlink.ADD,
				KObj:   "/devices/virtual/net/wlan0",
				Env:    map[string]string{"SUBSYSTEM": "net", "INTERFACE": "wlan0"},
			},
			expect: true,
		},
		{
			name: "link removed",
			event: netlink.UEvent{
				Action: netlink.REMOVE,
				KObj:   "/devices/virtual/net/eth0",
				Env:    map[string]string{"SUBSYSTEM": "net", "INTERFACE": "eth0"},
			},
			expect: true,
		},
		{
			name: "block device ignored",
			event: netlink.UEvent{
				Action: netlink.ADD,
				KObj:   "/devices/block/sr0",
				Env:    map[string]string{"SUBSYSTEM": "block"},
			},
			expect: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.Evaluate(tt.event); got != tt.expect {
				t.Fatalf("Evaluate = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestHandleEventTriggersExceptLoopback(t *testing.T) {
	var calls atomic.Int32
	m := newNetlinkMonitor(nil, func() { calls.Add(1) })

	m.handleEvent(netlink.UEvent{Action: netlink.CHANGE, KObj: "/devices/virtual/net/lo", Env: map[string]string{"INTERFACE": "lo"}})
	if calls.Load() != 0 {
		t.Fatal("expected loopback events to be ignored")
	}
	m.handleEvent(netlink.UEvent{Action: netlink.CHANGE, KObj: "/devices/pci0000:00/net/enp3s0", Env: map[string]string{}})
	if calls.Load() != 1 {
		t.Fatalf("expected one trigger, got %d", calls.Load())
	}
}

func TestInterfaceName(t *testing.T) {
	if got := interfaceName(netlink.UEvent{KObj: "/devices/virtual/net/wg0"}); got != "wg0" {
		t.Fatalf("unexpected interface %q", got)
	}
	if got := interfaceName(netlink.UEvent{Env: map[string]string{"INTERFACE": "eth1"}}); got != "eth1" {
		t.Fatalf("unexpected interface %q", got)
	}
}
