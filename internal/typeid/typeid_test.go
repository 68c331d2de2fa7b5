package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayoutID(t *testing.T) {
	id := NewLayoutID()
	assert.True(t, strings.HasPrefix(id, PrefixLayout+"_"))
	require.NoError(t, Validate(id, PrefixLayout))
	assert.NotEqual(t, id, NewLayoutID())
}

func TestValidateRejects(t *testing.T) {
	assert.Error(t, Validate(NewAssetID(), PrefixLayout))
	assert.Error(t, Validate("lay_not-an-id", PrefixLayout))
}
