package node

import (
	"sync"
	"testing"

	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newTestNode(attrs map[string]cty.Value) *Node {
	return New(nodeid.New("Conv2D", "conv1"), attrs)
}

func TestNode_Identity(t *testing.T) {
	n := New(nodeid.MustParse("Conv2D.conv1[2]"), nil)

	assert.Equal(t, "Conv2D.conv1", n.ID(), "slice index must be dropped from node identity")
	assert.Equal(t, "conv1", n.Name())
	assert.Equal(t, "Conv2D", n.Type())
	assert.Equal(t, Pending, n.GetState())
}

func TestNode_AttributeBag(t *testing.T) {
	n := newTestNode(map[string]cty.Value{"fusion_scope": cty.NumberIntVal(3)})

	assert.True(t, n.HasAttr("fusion_scope"))
	v, ok := n.GetAttr("fusion_scope")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(3)))

	assert.True(t, n.SetAttr("l1_info", cty.StringVal("x")))
	assert.False(t, n.SetAttr("l1_info", cty.StringVal("x")), "setting an equal value must be a no-op")
	assert.True(t, n.SetAttr("l1_info", cty.StringVal("y")))

	assert.True(t, n.DelAttr("fusion_scope"))
	assert.False(t, n.DelAttr("fusion_scope"))
	assert.Equal(t, []string{"l1_info"}, n.AttrNames())
}

func TestNode_NewCopiesAttributes(t *testing.T) {
	attrs := map[string]cty.Value{"a": cty.True}
	n := newTestNode(attrs)
	attrs["b"] = cty.False

	assert.False(t, n.HasAttr("b"))
}

func TestNode_RollbackList(t *testing.T) {
	testCases := []struct {
		name     string
		value    cty.Value
		expected []string
	}{
		{name: "list", value: cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}), expected: []string{"a", "b"}},
		{name: "tuple with junk", value: cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)}), expected: []string{"a"}},
		{name: "wrong type", value: cty.StringVal("a"), expected: nil},
		{name: "null", value: cty.NullVal(cty.List(cty.String)), expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := newTestNode(map[string]cty.Value{AttrRollbackIfFailed: tc.value})
			assert.Equal(t, tc.expected, n.RollbackList())
		})
	}

	assert.Nil(t, newTestNode(nil).RollbackList())
}

func TestNode_ConcurrentAttributeAccess(t *testing.T) {
	n := newTestNode(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n.SetAttr("shared", cty.NumberIntVal(int64(i)))
			_, _ = n.GetAttr("shared")
			_ = n.Attrs()
		}(i)
	}
	wg.Wait()

	assert.True(t, n.HasAttr("shared"))
}
