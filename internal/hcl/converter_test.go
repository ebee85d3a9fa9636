package hcl

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testOptions struct {
	Workers   int           `cty:"workers"`
	Latency   time.Duration `cty:"latency"`
	FailNodes []string      `cty:"fail_nodes"`
	OutputDir string        `cty:"output_dir"`
	internal  string
}

func TestConverter_DecodeOptions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := ctxlog.Discard(context.Background())
	opts := &testOptions{Workers: 2, OutputDir: "/tmp/default"}
	attrs := map[string]cty.Value{
		"workers":    cty.StringVal("8"), // converted
		"latency":    cty.StringVal("150ms"),
		"fail_nodes": cty.TupleVal([]cty.Value{cty.StringVal("Add.a"), cty.StringVal("Mul.b")}),
	}

	// --- Act ---
	err := NewConverter().DecodeOptions(ctx, attrs, opts)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 8, opts.Workers)
	assert.Equal(t, 150*time.Millisecond, opts.Latency)
	assert.Equal(t, []string{"Add.a", "Mul.b"}, opts.FailNodes)
	assert.Equal(t, "/tmp/default", opts.OutputDir, "unset options keep their default")
	assert.Empty(t, opts.internal)
}

func TestConverter_DecodeOptionsErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		attrs   map[string]cty.Value
		target  any
		wantErr string
	}{
		{name: "unknown option", attrs: map[string]cty.Value{"speed": cty.NumberIntVal(1)}, target: &testOptions{}, wantErr: `unsupported option "speed"`},
		{name: "bad duration", attrs: map[string]cty.Value{"latency": cty.StringVal("fast")}, target: &testOptions{}, wantErr: `option "latency"`},
		{name: "bad type", attrs: map[string]cty.Value{"workers": cty.StringVal("many")}, target: &testOptions{}, wantErr: `option "workers"`},
		{name: "not a pointer", attrs: nil, target: testOptions{}, wantErr: "non-nil pointer to a struct"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := NewConverter().DecodeOptions(ctxlog.Discard(context.Background()), tc.attrs, tc.target)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConverter_ToCtyValue(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	v, err := c.ToCtyValue(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.MapVal(map[string]cty.Value{"a": cty.StringVal("b")})))

	v, err = c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, v)
}
