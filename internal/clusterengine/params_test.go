package clusterengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
)

func slurmType() ClusterType {
	return ClusterType{
		Name: "slurm",
		Parameters: []Parameter{
			{Name: "cluster_network", Kind: KindString},
			{Name: "workers", Kind: KindInteger, Required: true},
			{Name: "flavor", Kind: KindChoice, Options: []string{"small", "large"}, Default: "small", Immutable: true},
			{Name: "monitoring", Kind: KindBoolean, Default: false},
		},
	}
}

func TestValidateParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   map[string]any
		prev     map[string]any
		expected map[string]any
		wantErr  string
	}{
		{
			name:     "defaults applied",
			params:   map[string]any{"workers": 3},
			expected: map[string]any{"workers": 3, "flavor": "small", "monitoring": false},
		},
		{
			name:     "values coerced",
			params:   map[string]any{"workers": "4", "monitoring": "true", "flavor": "large"},
			expected: map[string]any{"workers": 4, "flavor": "large", "monitoring": true},
		},
		{
			name:     "json numbers",
			params:   map[string]any{"workers": float64(2)},
			expected: map[string]any{"workers": 2, "flavor": "small", "monitoring": false},
		},
		{
			name:    "missing required",
			params:  map[string]any{},
			wantErr: "Parameter 'workers' is required.",
		},
		{
			name:    "unknown parameter",
			params:  map[string]any{"workers": 1, "bogus": "x"},
			wantErr: "Unrecognised parameter 'bogus' for cluster type 'slurm'.",
		},
		{
			name:    "bad integer",
			params:  map[string]any{"workers": "many"},
			wantErr: "Parameter 'workers' must be a valid integer.",
		},
		{
			name:    "bad choice",
			params:  map[string]any{"workers": 1, "flavor": "huge"},
			wantErr: "Parameter 'flavor' must be one of [small large].",
		},
		{
			name:     "update keeps previous values",
			params:   map[string]any{"workers": 5},
			prev:     map[string]any{"workers": 3, "flavor": "large", "monitoring": true, "cluster_network": "net"},
			expected: map[string]any{"workers": 5, "flavor": "large", "monitoring": true, "cluster_network": "net"},
		},
		{
			name:     "update with unchanged immutable",
			params:   map[string]any{"workers": 5, "flavor": "large"},
			prev:     map[string]any{"workers": 3, "flavor": "large"},
			expected: map[string]any{"workers": 5, "flavor": "large", "monitoring": false},
		},
		{
			name:    "update changing immutable",
			params:  map[string]any{"workers": 5, "flavor": "small"},
			prev:    map[string]any{"workers": 3, "flavor": "large"},
			wantErr: "Parameter 'flavor' cannot be changed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ValidateParams(slurmType(), tt.params, tt.prev)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, cloud.ErrBadInput)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClusterTypeParameter(t *testing.T) {
	t.Parallel()

	p, ok := slurmType().Parameter("flavor")
	require.True(t, ok)
	assert.True(t, p.Immutable)

	_, ok = slurmType().Parameter("missing")
	assert.False(t, ok)
}
