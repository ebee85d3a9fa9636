package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_RoundTrip(t *testing.T) {
	for _, id := range []string{"Conv2D.conv1", "MatMul.proj[15]", "relu", "Add.backbone/add[0]"} {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())
		})
	}
}

func TestAddress_SliceHelpers(t *testing.T) {
	addr := New("MatMul", "proj")
	assert.False(t, addr.HasSlice())
	assert.True(t, addr.IsQualified())

	sliced := addr.WithSlice(2)
	assert.True(t, sliced.HasSlice())
	assert.Equal(t, "MatMul.proj[2]", sliced.String())
	assert.Equal(t, addr, sliced.Node())
	assert.False(t, addr.HasSlice(), "WithSlice must not mutate the receiver")
}

func TestAddress_Matches(t *testing.T) {
	full := New("Conv2D", "conv1")

	assert.True(t, MustParse("conv1").Matches(full))
	assert.True(t, MustParse("Conv2D.conv1[1]").Matches(full))
	assert.False(t, MustParse("Relu.conv1").Matches(full))
	assert.False(t, MustParse("conv2").Matches(full))
}
