// Package args resolves positional arguments, environment overrides, and
// built-in defaults into a fully-resolved request for one operation.
package args

import "strings"

// Operation identifies which pipeline an invocation drives.
type Operation string

const (
	OpTrain    Operation = "submit-training"
	OpInfer    Operation = "submit-inference"
	OpKill     Operation = "kill"
	OpDownload Operation = "download"
)

// Env looks up an environment variable; os.Getenv in production.
type Env func(string) string

// Arg is a single positional slot. Set distinguishes an explicitly passed
// empty string (caller forcing default behavior) from a slot that was never
// provided because the argument list ended earlier.
type Arg struct {
	Value string
	Set   bool
}

// At returns the i-th positional slot of argv.
func At(argv []string, i int) Arg {
	if i < len(argv) {
		return Arg{Value: argv[i], Set: true}
	}
	return Arg{}
}

// positional implements plain positional-with-default substitution:
// a non-empty value wins, anything else falls back to the default.
// Environment variables are ignored for these fields.
func positional(a Arg, def string) string {
	if a.Set && a.Value != "" {
		return a.Value
	}
	return def
}

// override implements explicit-override semantics for the wandb fields:
// a non-empty value wins; an explicitly passed empty string and an absent
// slot both fall back to the environment variable, then the default.
func override(a Arg, envKey, def string, env Env) string {
	if a.Set && a.Value != "" {
		return a.Value
	}
	if v := env(envKey); v != "" {
		return v
	}
	return def
}

// TargetKind tags the interpretation of the shared checkpoint/host slot.
type TargetKind int

const (
	// HostOnly: the slot held a user@host identifier; no checkpoint requested.
	HostOnly TargetKind = iota
	// CheckpointThenHost: the slot held a checkpoint path; the host comes
	// from the following slot.
	CheckpointThenHost
)

// TargetSpec is the shared slot decided once during parsing. Downstream code
// never re-derives the meaning from string content.
type TargetSpec struct {
	Kind       TargetKind
	Checkpoint string
	Host       string
}

// ParseTarget disambiguates the shared checkpoint/host slot of an inference
// submission. A value containing '@' is a host identifier and means no
// checkpoint was requested; otherwise the value is the checkpoint path and
// the next slot (or the default) names the host.
func ParseTarget(slot, next Arg, defaultHost string) TargetSpec {
	if slot.Set && strings.Contains(slot.Value, "@") {
		return TargetSpec{Kind: HostOnly, Host: slot.Value}
	}
	return TargetSpec{
		Kind:       CheckpointThenHost,
		Checkpoint: slot.Value,
		Host:       positional(next, defaultHost),
	}
}
