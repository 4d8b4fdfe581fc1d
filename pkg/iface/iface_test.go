package iface

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		vendor string
		want   string
	}{
		{"ios short gig", "Gi0/1", IOS, "GigabitEthernet0/1"},
		{"ios short gig multi-slot", "Gi1/0/24", IOS, "GigabitEthernet1/0/24"},
		{"ios ten gig", "Te1/1/1", IOS, "TenGigabitEthernet1/1/1"},
		{"ios fast eth", "Fa0/1", IOS, "FastEthernet0/1"},
		{"ios hundred gig", "Hu1/1", IOS, "HundredGigE1/1"},
		{"ios port-channel", "Po1", IOS, "Port-channel1"},
		{"ios vlan", "Vl100", IOS, "Vlan100"},
		{"ios loopback", "Lo0", IOS, "Loopback0"},
		{"nxos ethernet", "Eth1/1", NXOS, "Ethernet1/1"},
		{"nxos port-channel lowercase", "Po10", NXOS, "port-channel10"},
		{"nxos loopback lowercase", "Lo1", NXOS, "loopback1"},
		{"eos ethernet", "Et1", EOS, "Ethernet1"},
		{"eos port-channel capitalized", "Po5", EOS, "Port-Channel5"},
		{"eos loopback", "Lo2", EOS, "Loopback2"},
		{"juniper ge left unchanged", "ge-0/0/1", Junos, "ge-0/0/1"},
		{"juniper irb subunit left unchanged", "irb.10", Junos, "irb.10"},
		{"juniper detected without hint", "xe-0/0/0", "", "xe-0/0/0"},
		{"already canonical is no-op", "GigabitEthernet0/1", IOS, "GigabitEthernet0/1"},
		{"already canonical no-op regardless of vendor", "Ethernet1/1", "", "Ethernet1/1"},
		{"no vendor hint falls back to generic scan", "Gi0/1", "", "GigabitEthernet0/1"},
		{"unrecognized form returned verbatim", "Xyz99", IOS, "Xyz99"},
		{"empty string is no-op", "", IOS, ""},
		{"literal unknown is no-op", "unknown", IOS, "unknown"},
		{"whitespace trimmed", "  Gi0/1  ", IOS, "GigabitEthernet0/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.vendor)
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.vendor, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []struct{ raw, vendor string }{
		{"Gi0/1", IOS},
		{"Te1/1/1", IOS},
		{"Eth1/1", NXOS},
		{"Et1", EOS},
		{"ge-0/0/1", Junos},
	}
	for _, in := range inputs {
		once := Normalize(in.raw, in.vendor)
		twice := Normalize(once, in.vendor)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q/%q: %q then %q", in.raw, in.vendor, once, twice)
		}
	}
}

func TestNormalizePair(t *testing.T) {
	local, remote := NormalizePair("Gi0/1", "Et1", IOS, EOS)
	if local != "GigabitEthernet0/1" || remote != "Ethernet1" {
		t.Errorf("NormalizePair = (%q, %q)", local, remote)
	}
}
