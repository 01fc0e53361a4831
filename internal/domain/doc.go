// Package domain contains the core value types of the initialization
// subsystem: lifecycle statuses, the events that move between them, and
// the errors returned to callers.
//
// This package has no dependencies on infrastructure concerns (logging,
// registries, locks) and contains only plain values.
//
// # Lifecycle
//
//	Uninitialized --Start--> Initializing --Complete--> Initialized
//	                          Initializing --Fail-----> Failed
//	Initialized | Failed | Initializing --Reset--> Uninitialized
//
// # Errors
//
// Step failures are reported as [*InitError] carrying a stable code and the
// phase that failed. The original cause stays reachable through errors.Unwrap.
package domain
