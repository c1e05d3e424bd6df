package args

// Environment variables consulted during resolution. The API key is handled
// by the configuration snapshot, not here; resolution never fails.
const (
	EnvWandbProject = "WANDB_PROJECT"
	EnvWandbEntity  = "WANDB_ENTITY"
	EnvWandbRunName = "WANDB_RUN_NAME"
)

// Defaults carries the built-in fallback values for one invocation, already
// merged from the configuration snapshot.
type Defaults struct {
	TrainData    string
	ValData      string
	ConfigFile   string
	InputFile    string
	OutputName   string
	Host         string
	WandbProject string
}

// OperationRequest is the resolved configuration for a single invocation.
// Immutable after resolution; resolution always succeeds by falling back to
// defaults, and downstream components raise errors for missing files.
type OperationRequest struct {
	Op Operation

	TrainData  string
	ValData    string
	ConfigFile string
	InputFile  string

	// Checkpoint is empty when no adapter was requested. Target preserves
	// how the shared slot was interpreted for inference submissions.
	Checkpoint string
	Target     TargetSpec

	OutputName string
	Host       string

	WandbProject string
	WandbEntity  string
	WandbRunName string

	JobID string
}

// ResolveTrain resolves a training submission from
//
//	[train_data] [val_data] [config] [output_name] [wandb_project] [wandb_entity] [run_name] [host]
func ResolveTrain(argv []string, def Defaults, env Env) OperationRequest {
	return OperationRequest{
		Op:           OpTrain,
		TrainData:    positional(At(argv, 0), def.TrainData),
		ValData:      positional(At(argv, 1), def.ValData),
		ConfigFile:   positional(At(argv, 2), def.ConfigFile),
		OutputName:   positional(At(argv, 3), def.OutputName),
		WandbProject: override(At(argv, 4), EnvWandbProject, def.WandbProject, env),
		WandbEntity:  override(At(argv, 5), EnvWandbEntity, "", env),
		WandbRunName: override(At(argv, 6), EnvWandbRunName, "", env),
		Host:         positional(At(argv, 7), def.Host),
	}
}

// ResolveInfer resolves an inference submission from
//
//	[input_file] [config] [output_name] [checkpoint_or_host] [host]
//
// The fourth slot is shared: "user@host" means no checkpoint, anything else
// is the checkpoint path followed by an optional host slot.
func ResolveInfer(argv []string, def Defaults, env Env) OperationRequest {
	target := ParseTarget(At(argv, 3), At(argv, 4), def.Host)
	host := target.Host
	if host == "" {
		host = def.Host
	}
	return OperationRequest{
		Op:         OpInfer,
		InputFile:  positional(At(argv, 0), def.InputFile),
		ConfigFile: positional(At(argv, 1), def.ConfigFile),
		OutputName: positional(At(argv, 2), def.OutputName),
		Checkpoint: target.Checkpoint,
		Target:     target,
		Host:       host,
	}
}

// ResolveKill resolves a cancel request from [job_id].
func ResolveKill(argv []string, def Defaults, env Env) OperationRequest {
	return OperationRequest{
		Op:    OpKill,
		JobID: positional(At(argv, 0), ""),
		Host:  def.Host,
	}
}

// ResolveDownload resolves a download request from [output_name] [job_id].
func ResolveDownload(argv []string, def Defaults, env Env) OperationRequest {
	return OperationRequest{
		Op:         OpDownload,
		OutputName: positional(At(argv, 0), def.OutputName),
		JobID:      positional(At(argv, 1), ""),
		Host:       def.Host,
	}
}
