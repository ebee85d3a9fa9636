// Package registry maps backend type names used in plan files to the Go
// factories that build them.
//
// # Why Registry Exists
//
// The scheduler talks to "the native compiler" through an interface and does
// not care how that compiler is reached. Which one is used is a deployment
// decision taken in the plan file (`backend "simulated" { ... }`). Modules
// register a named BackendFactory at startup, the app looks the name up, and
// the factory's options struct is decoded straight from the backend block.
//
// Validate runs once at startup so that a factory whose options struct cannot
// be bound to plan values fails fast instead of on first use.
package registry
