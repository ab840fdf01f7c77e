package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullMarshalsAbsentAsNull(t *testing.T) {
	type payload struct {
		Value  Null[float64] `json:"value"`
		Rating Null[float64] `json:"rating"`
	}

	data, err := json.Marshal(payload{Value: Some(890.0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":890,"rating":null}`, string(data))
}

func TestNullUnmarshal(t *testing.T) {
	var n Null[float64]
	require.NoError(t, json.Unmarshal([]byte("null"), &n))
	assert.False(t, n.Valid)

	require.NoError(t, json.Unmarshal([]byte("3.5"), &n))
	assert.True(t, n.Valid)
	assert.Equal(t, 3.5, n.Value)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
}

func TestNullOr(t *testing.T) {
	assert.Equal(t, 7.0, Some(7.0).Or(0))
	assert.Equal(t, 5.0, None[float64]().Or(5))
}
