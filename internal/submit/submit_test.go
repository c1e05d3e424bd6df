package submit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainExportsFixedOrder(t *testing.T) {
	s := TrainExports(TrainInputs{
		ConfigFile:   "llm-finetune/lora_sft.yaml",
		TrainFile:    "llm-finetune/train.jsonl",
		ValFile:      "llm-finetune/val.jsonl",
		OutputName:   "arxiv_run",
		WandbProject: "llm-finetune",
		WandbEntity:  "my-team",
		WandbRunName: "run7",
		WandbAPIKey:  "k-secret",
	})
	assert.Equal(t,
		"CONFIG_FILE=llm-finetune/lora_sft.yaml,TRAIN_FILE=llm-finetune/train.jsonl,"+
			"VAL_FILE=llm-finetune/val.jsonl,OUTPUT_NAME=arxiv_run,WANDB_PROJECT=llm-finetune,"+
			"WANDB_ENTITY=my-team,WANDB_RUN_NAME=run7,WANDB_API_KEY=k-secret",
		s.String())
}

func TestUnsetEntityIsOmittedEntirely(t *testing.T) {
	s := TrainExports(TrainInputs{
		ConfigFile:   "c.yaml",
		TrainFile:    "t.jsonl",
		ValFile:      "v.jsonl",
		OutputName:   "out",
		WandbProject: "proj",
	})
	assert.NotContains(t, s.String(), "WANDB_ENTITY")
	assert.NotContains(t, s.String(), "WANDB_ENTITY=")
	assert.False(t, s.Has(VarWandbEntity))
	assert.False(t, s.Has(VarWandbRunName))
	assert.False(t, s.Has(VarWandbAPIKey))
}

func TestCredentialForwardedVerbatim(t *testing.T) {
	key := "local-  weird==key,chars"
	s := TrainExports(TrainInputs{
		ConfigFile: "c", TrainFile: "t", ValFile: "v", OutputName: "o",
		WandbProject: "p", WandbAPIKey: key,
	})
	assert.True(t, strings.HasSuffix(s.String(), "WANDB_API_KEY="+key))
}

func TestInferExportsAdapterOptional(t *testing.T) {
	s := InferExports(InferInputs{
		ConfigFile: "c.yaml", InputFile: "in.jsonl", OutputName: "out",
	})
	assert.Equal(t, "CONFIG_FILE=c.yaml,INPUT_FILE=in.jsonl,OUTPUT_NAME=out", s.String())

	s = InferExports(InferInputs{
		ConfigFile: "c.yaml", InputFile: "in.jsonl", OutputName: "out",
		AdapterPath: "/saves/run_42/checkpoint-10",
	})
	assert.True(t, s.Has(VarAdapterPath))
	assert.Contains(t, s.String(), "ADAPTER_PATH=/saves/run_42/checkpoint-10")
}

func TestCommandShape(t *testing.T) {
	s := InferExports(InferInputs{ConfigFile: "c", InputFile: "i", OutputName: "o"})
	argv := Command(InferJobName, "llm-finetune", InferScript, s)
	require.Equal(t, []string{
		"sbatch",
		"--chdir=llm-finetune",
		"--job-name=lora_infer",
		"--output=logs/lora_infer-%j.out",
		"--export=ALL,CONFIG_FILE=c,INPUT_FILE=i,OUTPUT_NAME=o",
		"run_inference.sbatch",
	}, argv)
}

func TestOutputFileNameRoundTrip(t *testing.T) {
	name := OutputFileName("arxiv_gpt5_article", "12345")
	require.Equal(t, "arxiv_gpt5_article_12345.jsonl", name)

	id, ok := ParseJobID(name)
	require.True(t, ok)
	assert.Equal(t, "12345", id)
}

func TestParseJobIDMatchesLastSuffixOnly(t *testing.T) {
	id, ok := ParseJobID("banking77_v2_99_100.jsonl")
	require.True(t, ok)
	assert.Equal(t, "100", id)

	_, ok = ParseJobID("no_suffix.jsonl")
	assert.False(t, ok)
	_, ok = ParseJobID("missing_extension_42")
	assert.False(t, ok)
}
