// Package ops wires the four operations end to end: resolve → normalize →
// verify/discover → transfer → submit, plus job cancel and result download.
// Each pipeline is strictly sequential; any failure aborts the rest.
package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"ftctl/internal/args"
	"ftctl/internal/checkpoint"
	"ftctl/internal/config"
	"ftctl/internal/ledger"
	"ftctl/internal/paths"
	"ftctl/internal/remote"
	"ftctl/internal/submit"
)

// MissingFileError reports a required local input that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("required input %s does not exist", e.Path)
}

// Pipeline executes operations against one cluster. Ledger may be nil when
// local record keeping is unavailable.
type Pipeline struct {
	Cfg     *config.Snapshot
	Cluster *remote.Cluster
	Ledger  *ledger.Store
	Log     zerolog.Logger
}

// normalizeInputs resolves each path against the local base directory and
// verifies every file exists, stopping at the first missing one. Nothing is
// transferred or submitted after a failure here.
func (p *Pipeline) normalizeInputs(inputs ...string) ([]paths.ResolvedPath, error) {
	resolved := make([]paths.ResolvedPath, 0, len(inputs))
	for _, in := range inputs {
		rp, err := paths.Normalize(in, p.Cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(rp.Path)
		if err != nil || info.IsDir() {
			return nil, &MissingFileError{Path: rp.Path}
		}
		p.Log.Debug().Str("path", rp.Path).Str("strategy", string(rp.Strategy)).Msg("input resolved")
		resolved = append(resolved, rp)
	}
	return resolved, nil
}

// stage ensures the remote layout and pushes the given resolved files.
func (p *Pipeline) stage(files []paths.ResolvedPath) error {
	if err := p.Cluster.EnsureLayout(p.Cfg.RemoteDir); err != nil {
		return fmt.Errorf("prepare remote directory %s: %w", p.Cfg.RemoteDir, err)
	}
	local := make([]string, len(files))
	for i, f := range files {
		local[i] = f.Path
	}
	return p.Cluster.Push(p.Cfg.RemoteDir, local)
}

func (p *Pipeline) record(rec ledger.Record) error {
	if p.Ledger == nil {
		return nil
	}
	if _, err := p.Ledger.Append(rec); err != nil {
		return err
	}
	return nil
}

// Train runs a training submission and returns the queue's job id.
func (p *Pipeline) Train(req args.OperationRequest) (string, error) {
	key, err := p.Cfg.RequireAPIKey()
	if err != nil {
		return "", err
	}
	p.Log.Info().Bool("wandb_api_key", true).Str("project", req.WandbProject).Msg("credentials loaded")

	files, err := p.normalizeInputs(req.TrainData, req.ValData, req.ConfigFile)
	if err != nil {
		return "", err
	}
	if err := p.stage(files); err != nil {
		return "", err
	}

	exports := submit.TrainExports(submit.TrainInputs{
		ConfigFile:   filepath.Base(files[2].Path),
		TrainFile:    filepath.Base(files[0].Path),
		ValFile:      filepath.Base(files[1].Path),
		OutputName:   req.OutputName,
		WandbProject: req.WandbProject,
		WandbEntity:  req.WandbEntity,
		WandbRunName: req.WandbRunName,
		WandbAPIKey:  key,
	})
	p.Log.Info().Strs("exports", exports.Keys()).Msg("submitting training job")

	jobID, err := p.Cluster.Submit(submit.Command(submit.TrainJobName, p.Cfg.RemoteDir, submit.TrainScript, exports))
	if err != nil {
		return "", err
	}
	return jobID, p.record(ledger.Record{
		Operation:  string(args.OpTrain),
		JobID:      jobID,
		Host:       req.Host,
		OutputName: req.OutputName,
	})
}

// Infer runs an inference submission and returns the queue's job id. When a
// checkpoint was requested, adapter discovery must succeed before anything
// touches the remote host.
func (p *Pipeline) Infer(req args.OperationRequest) (string, error) {
	adapterPath := ""
	if req.Checkpoint != "" {
		candidate, err := paths.Normalize(req.Checkpoint, p.Cfg.LocalDir)
		if err != nil {
			return "", err
		}
		loc, err := checkpoint.Locate(candidate.Path, p.Cfg.OutputRoot)
		if err != nil {
			return "", err
		}
		adapterPath = loc.Dir
		p.Log.Info().Str("adapter", loc.Dir).Str("strategy", string(loc.Strategy)).Msg("adapter located")
	}

	files, err := p.normalizeInputs(req.InputFile, req.ConfigFile)
	if err != nil {
		return "", err
	}
	if err := p.stage(files); err != nil {
		return "", err
	}

	exports := submit.InferExports(submit.InferInputs{
		ConfigFile:  filepath.Base(files[1].Path),
		InputFile:   filepath.Base(files[0].Path),
		OutputName:  req.OutputName,
		AdapterPath: adapterPath,
		WandbAPIKey: p.Cfg.APIKey(),
	})
	p.Log.Info().Strs("exports", exports.Keys()).Msg("submitting inference job")

	jobID, err := p.Cluster.Submit(submit.Command(submit.InferJobName, p.Cfg.RemoteDir, submit.InferScript, exports))
	if err != nil {
		return "", err
	}
	return jobID, p.record(ledger.Record{
		Operation:   string(args.OpInfer),
		JobID:       jobID,
		Host:        req.Host,
		OutputName:  req.OutputName,
		AdapterPath: adapterPath,
	})
}

// Kill cancels a job. With an explicit id it cancels unconditionally. With
// none it cancels the most recently submitted job matching the fixed name
// filter; no match is a non-fatal miss and returns an empty id.
func (p *Pipeline) Kill(req args.OperationRequest) (string, error) {
	if req.JobID != "" {
		if err := p.Cluster.Cancel(req.JobID); err != nil {
			return "", err
		}
		return req.JobID, nil
	}
	jobs, err := p.Cluster.Jobs(submit.JobNamePrefix)
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		p.Log.Info().Msg("no running jobs found")
		return "", nil
	}
	if err := p.Cluster.Cancel(jobs[0].ID); err != nil {
		return "", err
	}
	return jobs[0].ID, nil
}

// DownloadResult reports what Download fetched. Empty LocalPath means a
// non-fatal miss: nothing matched the output patterns.
type DownloadResult struct {
	LocalPath string
	JobID     string
}

// Download fetches a result artifact. With an explicit job id the expected
// filename must exist remotely; without one the newest match wins, falling
// back to a looser pattern, and the job id is recovered from the filename.
func (p *Pipeline) Download(req args.OperationRequest) (DownloadResult, error) {
	outputDir := filepath.ToSlash(filepath.Join(p.Cfg.RemoteDir, "output"))
	destDir := filepath.Join(p.Cfg.LocalDir, "results")

	if req.JobID != "" {
		name := submit.OutputFileName(req.OutputName, req.JobID)
		remotePath := outputDir + "/" + name
		ok, err := p.Cluster.FileExists(remotePath)
		if err != nil {
			return DownloadResult{}, err
		}
		if !ok {
			return DownloadResult{}, fmt.Errorf("remote output %s does not exist", remotePath)
		}
		local, err := p.Cluster.Fetch(remotePath, destDir)
		if err != nil {
			return DownloadResult{}, err
		}
		res := DownloadResult{LocalPath: local, JobID: req.JobID}
		return res, p.record(ledger.Record{
			Operation:  string(args.OpDownload),
			JobID:      req.JobID,
			Host:       req.Host,
			OutputName: req.OutputName,
		})
	}

	files, err := p.Cluster.ListOutputs(outputDir, req.OutputName+"_*.jsonl")
	if err != nil {
		return DownloadResult{}, err
	}
	if len(files) == 0 {
		files, err = p.Cluster.ListOutputs(outputDir, "*_*.jsonl")
		if err != nil {
			return DownloadResult{}, err
		}
	}
	if len(files) == 0 {
		p.Log.Info().Str("output", req.OutputName).Msg("no output files found")
		return DownloadResult{}, nil
	}

	newest := files[0]
	local, err := p.Cluster.Fetch(newest.Path, destDir)
	if err != nil {
		return DownloadResult{}, err
	}
	jobID, ok := submit.ParseJobID(filepath.Base(newest.Path))
	if !ok {
		p.Log.Warn().Str("file", newest.Path).Msg("filename does not carry a job id")
	}
	res := DownloadResult{LocalPath: local, JobID: jobID}
	return res, p.record(ledger.Record{
		Operation:  string(args.OpDownload),
		JobID:      jobID,
		Host:       req.Host,
		OutputName: req.OutputName,
	})
}
