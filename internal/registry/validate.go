package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/gocty"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validate checks that every factory's options struct can be bound from plan
// values: NewOptions must return a struct pointer, and every tagged field must
// have a type that maps onto a cty type.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, name := range r.BackendNames() {
		f := r.backends[name]
		if f.NewOptions == nil {
			logger.Debug("Backend takes no options.", "backend", name)
			continue
		}

		opts := f.NewOptions()
		rv := reflect.ValueOf(opts)
		if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
			errs = append(errs, fmt.Sprintf("backend '%s': NewOptions must return a pointer to a struct, got %T", name, opts))
			continue
		}

		st := rv.Elem().Type()
		for i := 0; i < st.NumField(); i++ {
			field := st.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := strings.Split(field.Tag.Get("cty"), ",")[0]
			if tag == "" || tag == "-" {
				continue
			}
			if field.Type == durationType {
				continue // bound from a duration string
			}
			if _, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface()); err != nil {
				errs = append(errs, fmt.Sprintf("backend '%s', option '%s': could not imply cty type from Go field type %s: %v", name, tag, field.Type, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
