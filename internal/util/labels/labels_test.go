package labels

import "testing"

func TestNetworkTag(t *testing.T) {
	t.Parallel()
	if got := NetworkTag(RoleInternal); got != "portal-internal" {
		t.Errorf("expected portal-internal, got %q", got)
	}
	if got := NetworkTag(RoleExternal); got != "portal-external" {
		t.Errorf("expected portal-external, got %q", got)
	}
}

func TestPrefixedAndStripPrefix(t *testing.T) {
	t.Parallel()

	prefixed := Prefixed("portal_", map[string]string{"tenant_name": "proj", "os": "linux"})
	if len(prefixed) != 2 || prefixed["portal_tenant_name"] != "proj" || prefixed["portal_os"] != "linux" {
		t.Errorf("unexpected prefixed metadata: %v", prefixed)
	}

	stripped := StripPrefix("portal_", map[string]string{
		"portal_private_if": "eth1",
		"portal_":           "empty-key",
		"architecture":      "x86_64",
	})
	if len(stripped) != 2 {
		t.Fatalf("expected 2 entries, got %v", stripped)
	}
	if stripped["private_if"] != "eth1" {
		t.Errorf("expected private_if=eth1, got %q", stripped["private_if"])
	}
	if _, ok := stripped["architecture"]; ok {
		t.Error("unprefixed keys must be dropped")
	}
}

func TestIsTrue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"True", true},
		{" TRUE ", true},
		{"false", false},
		{"1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			if got := IsTrue(tt.value); got != tt.expected {
				t.Errorf("IsTrue(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value    string
		expected bool
	}{
		{"eth1", true},
		{"1", true},
		{"true", true},
		{"false", true},
		{"0", true},
		{"  ", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			if got := Truthy(tt.value); got != tt.expected {
				t.Errorf("Truthy(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestInt(t *testing.T) {
	t.Parallel()
	labels := map[string]string{KeyMinNodeCount: "2", KeyMaxNodeCount: "many"}

	if got := Int(labels, KeyMinNodeCount); got == nil || *got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
	if got := Int(labels, KeyMaxNodeCount); got != nil {
		t.Errorf("expected nil for malformed value, got %d", *got)
	}
	if got := Int(labels, "missing"); got != nil {
		t.Errorf("expected nil for missing key, got %d", *got)
	}
}

func TestKubeTag(t *testing.T) {
	t.Parallel()
	if got := KubeTag(nil); got != "default" {
		t.Errorf("expected default, got %q", got)
	}
	if got := KubeTag(map[string]string{KeyKubeTag: "v1.30.1"}); got != "v1.30.1" {
		t.Errorf("expected v1.30.1, got %q", got)
	}
}

func TestLabelBuilder(t *testing.T) {
	t.Parallel()

	fixed := NewLabelBuilder().Build()
	if fixed[KeyAutoScalingEnabled] != "false" {
		t.Errorf("expected autoscaling disabled by default, got %q", fixed[KeyAutoScalingEnabled])
	}
	if _, ok := fixed[KeyMinNodeCount]; ok {
		t.Error("min_node_count must not be set without autoscaling")
	}

	scaled := NewLabelBuilder().
		WithAutoscaling(1, 5).
		WithGrafanaAdminPassword("s3cret").
		Build()
	expected := map[string]string{
		KeyAutoScalingEnabled:   "true",
		KeyMinNodeCount:         "1",
		KeyMaxNodeCount:         "5",
		KeyGrafanaAdminPassword: "s3cret",
	}
	if len(scaled) != len(expected) {
		t.Fatalf("expected %d labels, got %v", len(expected), scaled)
	}
	for k, v := range expected {
		if scaled[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, scaled[k])
		}
	}
}

func TestLabelBuilder_BuildReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder()
	first := lb.Build()
	first[KeyAutoScalingEnabled] = "mutated"

	if lb.Build()[KeyAutoScalingEnabled] != "false" {
		t.Error("Build must return an independent copy")
	}
}

func TestLabelBuilder_EmptyPasswordIgnored(t *testing.T) {
	t.Parallel()
	if _, ok := NewLabelBuilder().WithGrafanaAdminPassword("").Build()[KeyGrafanaAdminPassword]; ok {
		t.Error("empty password must not be set")
	}
}
