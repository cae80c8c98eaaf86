// Package credential contains the domain model for merchant OAuth
// credentials against the storefront platform: the per-merchant token
// record, the persistence and token-exchange ports, and the error
// taxonomy surfaced to callers of the token lifecycle.
package credential
