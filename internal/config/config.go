// Package config builds the process-wide configuration snapshot for one
// invocation. Sources are layered once at startup — built-in defaults, then
// ~/.ftctl/config.yaml (defaults plus named profiles), then environment
// variables — and the snapshot is immutable afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ftctl/internal/args"
	"ftctl/internal/paths"
)

// Environment variables read at startup.
const (
	EnvRemote      = "FT_REMOTE"
	EnvProfile     = "FT_PROFILE"
	EnvWandbAPIKey = "WANDB_API_KEY"
)

// Built-in defaults, used when neither config file nor environment provides
// a value.
const (
	defaultHost         = "cluster"
	defaultRemoteDir    = "llm-finetune"
	defaultLocalDir     = "~/llm-finetune"
	defaultTrainData    = "data/train.jsonl"
	defaultValData      = "data/val.jsonl"
	defaultConfigFile   = "configs/lora_sft.yaml"
	defaultInputFile    = "data/test.jsonl"
	defaultOutputName   = "predictions"
	defaultWandbProject = "llm-finetune"
)

// Profile is one named block of the config file. Empty fields inherit from
// the layer below.
type Profile struct {
	Remote       string `yaml:"remote"`
	RemoteDir    string `yaml:"remote_dir"`
	LocalDir     string `yaml:"local_dir"`
	OutputRoot   string `yaml:"output_root"`
	TrainData    string `yaml:"train_data"`
	ValData      string `yaml:"val_data"`
	ConfigFile   string `yaml:"config_file"`
	InputFile    string `yaml:"input_file"`
	OutputName   string `yaml:"output_name"`
	WandbProject string `yaml:"wandb_project"`
}

// File is the on-disk shape of ~/.ftctl/config.yaml.
type File struct {
	Defaults Profile            `yaml:"defaults"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// CredentialMissingError reports a required credential absent from the
// environment, with remediation guidance.
type CredentialMissingError struct {
	Var string
	Fix string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("%s is not set; %s", e.Var, e.Fix)
}

// Snapshot is the resolved configuration for this invocation.
type Snapshot struct {
	Host       string
	RemoteDir  string
	LocalDir   string // absolute
	OutputRoot string // absolute

	TrainData    string
	ValData      string
	ConfigFile   string
	InputFile    string
	OutputName   string
	WandbProject string

	Env args.Env
}

// Dir returns the tool's local configuration directory, creating it if
// needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".ftctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Load builds the snapshot from ~/.ftctl/config.yaml (if present), the
// environment, and built-in defaults. profile selects a named profile block;
// empty means defaults only.
func Load(profile string, env args.Env) (*Snapshot, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir, profile, env)
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir, profile string, env args.Env) (*Snapshot, error) {
	file, path, err := readFile(dir)
	if err != nil {
		return nil, err
	}

	merged := Profile{}
	if file != nil {
		merged = file.Defaults
		if profile != "" {
			prof, ok := file.Profiles[profile]
			if !ok {
				return nil, fmt.Errorf("profile %q not found in %s", profile, path)
			}
			merged = overlay(prof, merged)
		}
	} else if profile != "" {
		return nil, fmt.Errorf("profile %q requested but no config file found under %s", profile, dir)
	}

	host := env(EnvRemote)
	if host == "" {
		host = merged.Remote
	}
	if host == "" {
		host = defaultHost
	}

	localDir, err := paths.ExpandHome(pick(merged.LocalDir, defaultLocalDir))
	if err != nil {
		return nil, fmt.Errorf("resolve local dir: %w", err)
	}
	outputRoot := merged.OutputRoot
	if outputRoot == "" {
		outputRoot = filepath.Join(localDir, "saves")
	} else if outputRoot, err = paths.ExpandHome(outputRoot); err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}

	return &Snapshot{
		Host:         host,
		RemoteDir:    pick(merged.RemoteDir, defaultRemoteDir),
		LocalDir:     localDir,
		OutputRoot:   outputRoot,
		TrainData:    pick(merged.TrainData, defaultTrainData),
		ValData:      pick(merged.ValData, defaultValData),
		ConfigFile:   pick(merged.ConfigFile, defaultConfigFile),
		InputFile:    pick(merged.InputFile, defaultInputFile),
		OutputName:   pick(merged.OutputName, defaultOutputName),
		WandbProject: pick(merged.WandbProject, defaultWandbProject),
		Env:          env,
	}, nil
}

// Defaults exposes the snapshot as resolver defaults.
func (s *Snapshot) Defaults() args.Defaults {
	return args.Defaults{
		TrainData:    s.TrainData,
		ValData:      s.ValData,
		ConfigFile:   s.ConfigFile,
		InputFile:    s.InputFile,
		OutputName:   s.OutputName,
		Host:         s.Host,
		WandbProject: s.WandbProject,
	}
}

// APIKey returns the wandb API key from the environment; empty when unset.
func (s *Snapshot) APIKey() string {
	return s.Env(EnvWandbAPIKey)
}

// RequireAPIKey returns the key or a CredentialMissingError. Training
// submissions cannot proceed without it.
func (s *Snapshot) RequireAPIKey() (string, error) {
	if key := s.APIKey(); key != "" {
		return key, nil
	}
	return "", &CredentialMissingError{
		Var: EnvWandbAPIKey,
		Fix: "get one at https://wandb.ai/authorize and export it in your shell profile",
	}
}

func readFile(dir string) (*File, string, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", err
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		return &f, path, nil
	}
	return nil, "", nil
}

// overlay returns top with empty fields filled from bottom.
func overlay(top, bottom Profile) Profile {
	top.Remote = pick(top.Remote, bottom.Remote)
	top.RemoteDir = pick(top.RemoteDir, bottom.RemoteDir)
	top.LocalDir = pick(top.LocalDir, bottom.LocalDir)
	top.OutputRoot = pick(top.OutputRoot, bottom.OutputRoot)
	top.TrainData = pick(top.TrainData, bottom.TrainData)
	top.ValData = pick(top.ValData, bottom.ValData)
	top.ConfigFile = pick(top.ConfigFile, bottom.ConfigFile)
	top.InputFile = pick(top.InputFile, bottom.InputFile)
	top.OutputName = pick(top.OutputName, bottom.OutputName)
	top.WandbProject = pick(top.WandbProject, bottom.WandbProject)
	return top
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
