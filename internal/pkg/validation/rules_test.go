package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPhone(t *testing.T) {
	for _, ok := range []string{"555-0100", "+90 (232) 555 01 00", "123"} {
		assert.True(t, IsPhone(ok), ok)
	}
	for _, bad := range []string{"", "12", "phone", "555-0100x", "-5550100"} {
		assert.False(t, IsPhone(bad), bad)
	}
}

func TestIsName(t *testing.T) {
	assert.True(t, IsName("Ada"))
	assert.True(t, IsName("Ada Lovelace"))
	assert.False(t, IsName(""))
	assert.False(t, IsName(" Ada"))
	assert.False(t, IsName("   "))
}

func TestRegisteredTags(t *testing.T) {
	type request struct {
		Name   string   `validate:"personname"`
		Phones []string `validate:"dive,phone"`
	}
	v := New()

	require.NoError(t, v.Struct(request{Name: "Ada", Phones: []string{"555-0100"}}))
	assert.Error(t, v.Struct(request{Name: " Ada"}))
	assert.Error(t, v.Struct(request{Name: "Ada", Phones: []string{"call me"}}))
}
