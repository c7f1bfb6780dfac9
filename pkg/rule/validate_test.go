package rule

import (
	"testing"

	"github.com/korniloval/fierix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMethodConfig(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		wantErr string
	}{
		{name: "valid", rule: "com.foo.Bar.run(int, *)"},
		{name: "missing class", rule: "run()", wantErr: "class pattern"},
		{name: "missing method", rule: "com.foo.Bar.()", wantErr: "method pattern"},
		{name: "empty parameter", rule: "com.foo.Bar.run(int, , long)", wantErr: "parameter 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMethodConfig(types.MustMethodConfig(tt.rule))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMethodConfig_Nil(t *testing.T) {
	err := ValidateMethodConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestValidateConfiguration(t *testing.T) {
	ok := NewConfiguration(
		[]*types.MethodConfig{types.MustMethodConfig("com.foo.*.*(*)")},
		[]*types.MethodConfig{types.MustMethodConfig("com.foo.Internal.*(*)")},
	)
	assert.NoError(t, ValidateConfiguration(ok))

	conflict := NewConfiguration(
		[]*types.MethodConfig{types.MustMethodConfig("com.foo.*.*(*)")},
		[]*types.MethodConfig{types.MustMethodConfig("com.foo.*.*(*)")},
	)
	err := ValidateConfiguration(conflict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both included and excluded")

	badExclude := NewConfiguration(nil, []*types.MethodConfig{types.MustMethodConfig("Bar.()")})
	err = ValidateConfiguration(badExclude)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude:")

	assert.Error(t, ValidateConfiguration(nil))
}
