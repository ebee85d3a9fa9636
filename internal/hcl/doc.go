// Package hcl provides the concrete HCL implementation of the plan loading
// and option binding interfaces defined in the `config` package. It parses
// plan files, translates them into the format-agnostic model and binds
// backend options onto Go structs through cty.
package hcl
