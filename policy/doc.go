// Package policy provides the governance policy catalog: association-wide
// defaults plus per-team overrides, decoded from YAML and validated once at
// configuration time. Operations resolve an immutable *policy.Context from the
// catalog and may attach it to a context.Context so every evaluator in the
// chain reads the same snapshot.
package policy
