// Package submit constructs the export variable set and remote sbatch
// command line for one job submission, and handles the output filename
// convention shared with the download path.
package submit

import "strings"

// Export variable names consumed by the sbatch job scripts. The remote
// scripts default any variable that is absent, so optional variables are
// omitted entirely rather than exported empty.
const (
	VarConfigFile   = "CONFIG_FILE"
	VarTrainFile    = "TRAIN_FILE"
	VarValFile      = "VAL_FILE"
	VarInputFile    = "INPUT_FILE"
	VarOutputName   = "OUTPUT_NAME"
	VarAdapterPath  = "ADAPTER_PATH"
	VarWandbProject = "WANDB_PROJECT"
	VarWandbEntity  = "WANDB_ENTITY"
	VarWandbRunName = "WANDB_RUN_NAME"
	VarWandbAPIKey  = "WANDB_API_KEY"
)

type pair struct {
	key   string
	value string
}

// ExportVariableSet is an ordered KEY=value collection built incrementally.
// Order is fixed per operation so the remote command line is reproducible.
type ExportVariableSet struct {
	pairs []pair
}

// Add appends an entry unconditionally.
func (s *ExportVariableSet) Add(key, value string) {
	s.pairs = append(s.pairs, pair{key: key, value: value})
}

// AddNonEmpty appends an entry only when value is non-empty. Omission, not
// an empty assignment, signals the remote job that the feature is unset.
func (s *ExportVariableSet) AddNonEmpty(key, value string) {
	if value == "" {
		return
	}
	s.Add(key, value)
}

// Keys returns the variable names in order, for logging without values.
func (s *ExportVariableSet) Keys() []string {
	keys := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		keys[i] = p.key
	}
	return keys
}

// Has reports whether key was appended.
func (s *ExportVariableSet) Has(key string) bool {
	for _, p := range s.pairs {
		if p.key == key {
			return true
		}
	}
	return false
}

// String renders the flat KEY=value,KEY=value form sbatch --export expects.
func (s *ExportVariableSet) String() string {
	parts := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		parts[i] = p.key + "=" + p.value
	}
	return strings.Join(parts, ",")
}

// TrainInputs are the resolved values exported to a training job. Values
// sourced from credentials are forwarded verbatim.
type TrainInputs struct {
	ConfigFile   string
	TrainFile    string
	ValFile      string
	OutputName   string
	WandbProject string
	WandbEntity  string
	WandbRunName string
	WandbAPIKey  string
}

// TrainExports builds the export set for a training submission: required
// variables first in fixed order, then optionals only when non-empty.
func TrainExports(in TrainInputs) *ExportVariableSet {
	s := &ExportVariableSet{}
	s.Add(VarConfigFile, in.ConfigFile)
	s.Add(VarTrainFile, in.TrainFile)
	s.Add(VarValFile, in.ValFile)
	s.Add(VarOutputName, in.OutputName)
	s.Add(VarWandbProject, in.WandbProject)
	s.AddNonEmpty(VarWandbEntity, in.WandbEntity)
	s.AddNonEmpty(VarWandbRunName, in.WandbRunName)
	s.AddNonEmpty(VarWandbAPIKey, in.WandbAPIKey)
	return s
}

// InferInputs are the resolved values exported to an inference job.
type InferInputs struct {
	ConfigFile  string
	InputFile   string
	OutputName  string
	AdapterPath string
	WandbAPIKey string
}

// InferExports builds the export set for an inference submission. The
// adapter path is appended only when checkpoint discovery produced one.
func InferExports(in InferInputs) *ExportVariableSet {
	s := &ExportVariableSet{}
	s.Add(VarConfigFile, in.ConfigFile)
	s.Add(VarInputFile, in.InputFile)
	s.Add(VarOutputName, in.OutputName)
	s.AddNonEmpty(VarAdapterPath, in.AdapterPath)
	s.AddNonEmpty(VarWandbAPIKey, in.WandbAPIKey)
	return s
}
