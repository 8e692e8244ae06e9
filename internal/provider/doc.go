// Package provider defines the uniform interface every knowledge source
// implements, the RawHit value they return, the error taxonomy used to
// classify their failures, and the lazily constructing Registry that owns
// their lifetimes.
//
// Concrete sources live under internal/providers. New sources are added by
// registering another factory; the orchestrator never changes.
package provider
