// Command ftctl drives LoRA fine-tuning runs on a SLURM cluster from a
// laptop: it stages datasets and configs over rsync, submits sbatch jobs over
// ssh, cancels them, and pulls result files back down.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ftctl/internal/args"
	"ftctl/internal/config"
	"ftctl/internal/ledger"
	"ftctl/internal/ops"
	"ftctl/internal/remote"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("FT_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cmd, argv := os.Args[1], os.Args[2:]
	switch cmd {
	case "train":
		if err := cmdTrain(argv, log); err != nil {
			log.Fatal().Err(err).Msg("ftctl train")
		}
	case "infer":
		if err := cmdInfer(argv, log); err != nil {
			log.Fatal().Err(err).Msg("ftctl infer")
		}
	case "kill":
		if err := cmdKill(argv, log); err != nil {
			log.Fatal().Err(err).Msg("ftctl kill")
		}
	case "download":
		if err := cmdDownload(argv, log); err != nil {
			log.Fatal().Err(err).Msg("ftctl download")
		}
	case "list":
		if err := cmdList(); err != nil {
			log.Fatal().Err(err).Msg("ftctl list")
		}
	case "show":
		if err := cmdShow(argv); err != nil {
			log.Fatal().Err(err).Msg("ftctl show")
		}
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  ftctl train    [train_data] [val_data] [config] [output_name] [wandb_project] [wandb_entity] [run_name] [host]
  ftctl infer    [input_file] [config] [output_name] [checkpoint|user@host] [host]
  ftctl kill     [job_id]
  ftctl download [output_name] [job_id]
  ftctl list
  ftctl show <id>

Commands:
  train     Stage datasets and a config to the cluster and submit a LoRA training job.
  infer     Stage an input file and submit an inference job, optionally with a local adapter checkpoint.
  kill      Cancel a job by id, or the most recent lora_* job when no id is given.
  download  Fetch a result file from the cluster, newest match when no job id is given.
  list      List recorded submissions (stored locally).
  show      Show details of one recorded submission by id.

Examples:
  ftctl train data/train.jsonl data/val.jsonl configs/lora_sft.yaml my_run
  ftctl infer data/test.jsonl configs/lora_sft.yaml arxiv_gpt5_article output/run_42
  ftctl infer '' '' predictions user@login
  ftctl kill
  ftctl download arxiv_gpt5_article 2723147

Notes:
  - Every positional is optional; empty string keeps the default for that slot.
  - Defaults and profiles live in ~/.ftctl/config.yaml; select one with FT_PROFILE.
  - FT_REMOTE overrides the configured remote host.
  - Training requires WANDB_API_KEY in the environment.`)
}

// newPipeline loads configuration, resolves the request, and wires the
// pipeline against the request's host. A ledger that fails to open degrades
// to a warning; the operation itself still runs.
func newPipeline(resolve func(args.Defaults, args.Env) args.OperationRequest,
	log zerolog.Logger) (*ops.Pipeline, args.OperationRequest, func(), error) {

	cfg, err := config.Load(os.Getenv(config.EnvProfile), os.Getenv)
	if err != nil {
		return nil, args.OperationRequest{}, nil, fmt.Errorf("load config: %w", err)
	}
	req := resolve(cfg.Defaults(), cfg.Env)

	var store *ledger.Store
	closeStore := func() {}
	if dir, err := config.Dir(); err != nil {
		log.Warn().Err(err).Msg("submission ledger unavailable")
	} else if store, err = ledger.Open(ledger.DefaultPath(dir)); err != nil {
		log.Warn().Err(err).Msg("submission ledger unavailable")
		store = nil
	} else {
		closeStore = func() { store.Close() }
	}

	p := &ops.Pipeline{
		Cfg:     cfg,
		Cluster: remote.New(req.Host, remote.NewCommander(log), log),
		Ledger:  store,
		Log:     log,
	}
	return p, req, closeStore, nil
}

func cmdTrain(argv []string, log zerolog.Logger) error {
	p, req, done, err := newPipeline(func(def args.Defaults, env args.Env) args.OperationRequest {
		return args.ResolveTrain(argv, def, env)
	}, log)
	if err != nil {
		return err
	}
	defer done()

	jobID, err := p.Train(req)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted batch job %s\n", jobID)
	return nil
}

func cmdInfer(argv []string, log zerolog.Logger) error {
	p, req, done, err := newPipeline(func(def args.Defaults, env args.Env) args.OperationRequest {
		return args.ResolveInfer(argv, def, env)
	}, log)
	if err != nil {
		return err
	}
	defer done()

	jobID, err := p.Infer(req)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted batch job %s\n", jobID)
	return nil
}

func cmdKill(argv []string, log zerolog.Logger) error {
	p, req, done, err := newPipeline(func(def args.Defaults, env args.Env) args.OperationRequest {
		return args.ResolveKill(argv, def, env)
	}, log)
	if err != nil {
		return err
	}
	defer done()

	jobID, err := p.Kill(req)
	if err != nil {
		return err
	}
	if jobID == "" {
		fmt.Println("no running jobs found")
		return nil
	}
	fmt.Printf("Cancelled job %s\n", jobID)
	return nil
}

func cmdDownload(argv []string, log zerolog.Logger) error {
	p, req, done, err := newPipeline(func(def args.Defaults, env args.Env) args.OperationRequest {
		return args.ResolveDownload(argv, def, env)
	}, log)
	if err != nil {
		return err
	}
	defer done()

	res, err := p.Download(req)
	if err != nil {
		return err
	}
	if res.LocalPath == "" {
		fmt.Println("no output files found")
		return nil
	}
	fmt.Printf("Downloaded %s\n", res.LocalPath)
	return nil
}

func openLedger() (*ledger.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return ledger.Open(ledger.DefaultPath(dir))
}

func cmdList() error {
	store, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	recs, err := store.List()
	if err != nil {
		return err
	}
	fmt.Printf("%-36s %-18s %-10s %-22s %-24s %-20s\n",
		"ID", "OPERATION", "JOB_ID", "HOST", "OUTPUT_NAME", "CREATED_AT")
	for _, r := range recs {
		fmt.Printf("%-36s %-18s %-10s %-22s %-24s %-20s\n",
			r.ID, r.Operation, r.JobID, r.Host, r.OutputName,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func cmdShow(argv []string) error {
	if len(argv) != 1 {
		return fmt.Errorf("usage: ftctl show <id>")
	}
	store, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	rec, err := store.Get(argv[0])
	if err != nil {
		return err
	}

	fmt.Printf("Submission %s\n", rec.ID)
	fmt.Println("-------------")
	fmt.Printf("Operation:   %s\n", rec.Operation)
	fmt.Printf("Job ID:      %s\n", rec.JobID)
	fmt.Printf("Host:        %s\n", rec.Host)
	fmt.Printf("Output name: %s\n", rec.OutputName)
	if rec.AdapterPath != "" {
		fmt.Printf("Adapter:     %s\n", rec.AdapterPath)
	}
	if !rec.CreatedAt.IsZero() {
		fmt.Printf("Created at:  %s\n", rec.CreatedAt.Format(time.RFC3339))
	} else {
		fmt.Printf("Created at:  (unknown)\n")
	}
	return nil
}
