package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "cloudbroker", cmd.Use)
	assert.Equal(t, "Manage tenancy resources through the cloud broker", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"tenancies",
		"capabilities",
		"quotas",
		"images",
		"sizes",
		"machines",
		"volumes",
		"ips",
		"kubernetes",
		"ssh-key",
		"version",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestRoot_PersistentFlags(t *testing.T) {
	cmd := Root()

	for _, name := range []string{"config", "username", "password", "token", "tenancy", "output", "log-level", "metrics-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "Expected flag --%s", name)
	}
	assert.Equal(t, "table", cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "t", cmd.PersistentFlags().Lookup("tenancy").Shorthand)
}

func TestGroups_HaveSubcommands(t *testing.T) {
	tests := []struct {
		group    string
		expected []string
	}{
		{"machines", []string{"list", "create", "start", "stop", "restart", "delete", "logs"}},
		{"volumes", []string{"list", "create", "delete", "attach", "detach"}},
		{"ips", []string{"list", "allocate", "attach", "detach"}},
		{"kubernetes", []string{"templates", "list", "create", "delete", "kubeconfig"}},
		{"ssh-key", []string{"get", "set"}},
	}

	root := Root()
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			group, _, err := root.Find([]string{tt.group})
			require.NoError(t, err)

			names := make(map[string]bool)
			for _, sub := range group.Commands() {
				names[sub.Name()] = true
			}
			for _, expected := range tt.expected {
				assert.True(t, names[expected], "Expected %s %s", tt.group, expected)
			}
		})
	}
}

func TestMachineCreate_RequiresImageAndSize(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"machines", "create", "web"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestVolumeCreate_RejectsNonNumericSize(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"volumes", "create", "data", "big"})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestKubernetesCreate_Flags(t *testing.T) {
	root := Root()
	create, _, err := root.Find([]string{"kubernetes", "create"})
	require.NoError(t, err)

	assert.Equal(t, "1", create.Flags().Lookup("workers").DefValue)
	assert.Equal(t, "false", create.Flags().Lookup("autoscaling").DefValue)
	assert.NotNil(t, create.Flags().Lookup("ssh-key"))
}

func TestKubeconfig_WaitFlag(t *testing.T) {
	root := Root()
	kubeconfig, _, err := root.Find([]string{"k8s", "kubeconfig"})
	require.NoError(t, err)

	wait := kubeconfig.Flags().Lookup("wait")
	require.NotNil(t, wait)
	assert.Equal(t, "0s", wait.DefValue)
}
