// Package config supplies the two configuration surfaces the core
// consumes: operational settings for the invocation layer (endpoint URLs,
// credentials, retry bound, state directory, cache flags), loaded from a
// YAML file and GATEPIPE_* environment variables, and human-readable
// pipeline definitions in YAML that reference registered stage names:
//
//	name: inbox-triage
//	stages:
//	  - triage
//	  - bucket-summary
//	  - name: gate
//	    args:
//	      prompt: "send summary?"
//
// A stage can be written as a plain name or as name + args. Parsed
// definitions convert to the engine's ordered stage-call list with
// Pipeline().
package config
