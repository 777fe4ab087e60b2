package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Type
		wantErr bool
	}{
		{"INTEGER", core.TypeInt, false},
		{"int64", core.TypeInt, false},
		{"Float", core.TypeFloat, false},
		{"BOOL", core.TypeBool, false},
		{" string ", core.TypeString, false},
		{"RECORD", core.TypeInvalid, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := core.ParseType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeText(t *testing.T) {
	var typ core.Type
	require.NoError(t, typ.UnmarshalText([]byte("boolean")))
	assert.Equal(t, core.TypeBool, typ)

	text, err := core.TypeFloat.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "FLOAT", string(text))

	_, err = core.TypeInvalid.MarshalText()
	assert.Error(t, err)
}

func TestCompileErrorMatching(t *testing.T) {
	err := core.Errorf(core.KindAmbiguous, "ambiguous column name %q", "value")
	wrapped := fmt.Errorf("compiling view: %w", err)

	assert.ErrorIs(t, wrapped, core.ErrAmbiguous)
	assert.NotErrorIs(t, wrapped, core.ErrNotFound)

	var ce *core.CompileError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, core.KindAmbiguous, ce.Kind)
	assert.Equal(t, `compile error: ambiguous column name "value"`, err.Error())
	assert.Equal(t, "compile error: not found", core.ErrNotFound.Error())
}
