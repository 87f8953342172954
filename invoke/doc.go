// Package invoke performs side-effecting external calls with idempotency
// and output-contract enforcement.
//
// A Client consults the run-state tier (by caller-chosen run key, only
// when the stored cache key matches the freshly derived one) and then the
// content-addressed cache before issuing any call. On a miss it posts the
// call payload through one of two interchangeable JSON transports: a
// direct endpoint taking the raw payload, or a router endpoint wrapping it
// in {tool, action, args}. It then validates the response envelope, and,
// when the caller supplied an output contract, validates the structured result
// against it, reissuing the call with retry context up to a bound. The
// first valid result is persisted to both tiers before it is returned.
//
// Every result is normalized to one canonical shape regardless of
// transport and carries a provenance tag: "remote", "cache", or
// "run_state".
package invoke
