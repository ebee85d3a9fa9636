package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeOptions binds attributes onto the `cty`-tagged fields of target.
// Fields without a matching attribute keep their current value, so the
// caller's defaults survive. time.Duration fields take duration strings.
func (c *Converter) DecodeOptions(ctx context.Context, attrs map[string]cty.Value, target any) error {
	logger := ctxlog.FromContext(ctx)

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Pointer || structVal.IsNil() || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct, got %T", target)
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	fields := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("cty"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		fields[tag] = i
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx, ok := fields[name]
		if !ok {
			return fmt.Errorf("unsupported option %q", name)
		}
		val := attrs[name]
		if val.IsNull() {
			continue
		}
		fieldVal := structVal.Field(idx)
		if err := c.decode(val, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("option %q: %w", name, err)
		}
		logger.Debug("Bound backend option.", "option", name, "type", val.Type().FriendlyName())
	}
	return nil
}

func (c *Converter) decode(val cty.Value, goPtr any) error {
	if !val.IsWhollyKnown() {
		return fmt.Errorf("value must be known")
	}

	if d, ok := goPtr.(*time.Duration); ok {
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("expected a duration string, got %s", val.Type().FriendlyName())
		}
		parsed, err := time.ParseDuration(str.AsString())
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	elem := reflect.ValueOf(goPtr).Elem()
	impliedType, err := gocty.ImpliedType(elem.Interface())
	if err != nil {
		return gocty.FromCtyValue(val, goPtr)
	}
	converted, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, goPtr)
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
