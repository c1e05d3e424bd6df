package remote

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommander records every call and replays scripted responses keyed on a
// substring of the joined command line.
type fakeCommander struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func newFake() *fakeCommander {
	return &fakeCommander{outputs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeCommander) record(name string, args []string) string {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	return strings.Join(call, " ")
}

func (f *fakeCommander) lookup(line string) (string, error) {
	for key, err := range f.errs {
		if strings.Contains(line, key) {
			return "", err
		}
	}
	for key, out := range f.outputs {
		if strings.Contains(line, key) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeCommander) Run(name string, args ...string) error {
	_, err := f.lookup(f.record(name, args))
	return err
}

func (f *fakeCommander) Output(name string, args ...string) (string, error) {
	return f.lookup(f.record(name, args))
}

func (f *fakeCommander) callLines() []string {
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = strings.Join(c, " ")
	}
	return lines
}

func testCluster(f *fakeCommander) *Cluster {
	return New("user@login", f, zerolog.Nop())
}

func TestSubmitParsesJobID(t *testing.T) {
	f := newFake()
	f.outputs["sbatch"] = "Submitted batch job 2723147\n"
	c := testCluster(f)

	id, err := c.Submit([]string{"sbatch", "--job-name=lora_train", "train_lora.sbatch"})
	require.NoError(t, err)
	assert.Equal(t, "2723147", id)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "ssh", f.calls[0][0])
	assert.Equal(t, "user@login", f.calls[0][1])
}

func TestSubmitUnparseableOutput(t *testing.T) {
	f := newFake()
	f.outputs["sbatch"] = "sbatch: error: invalid partition\n"
	c := testCluster(f)

	_, err := c.Submit([]string{"sbatch", "job.sbatch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse sbatch output")
}

func TestJobsSortedBySubmitTimeDescending(t *testing.T) {
	f := newFake()
	f.outputs["squeue"] = strings.Join([]string{
		"100|lora_train|2026-08-20T09:00:00",
		"300|lora_infer|2026-08-22T18:30:00",
		"200|lora_train|2026-08-21T12:00:00",
		"999|other_job|2026-08-23T01:00:00",
	}, "\n") + "\n"
	c := testCluster(f)

	jobs, err := c.Jobs("lora_")
	require.NoError(t, err)
	require.Len(t, jobs, 3, "non-matching names filtered out")
	assert.Equal(t, "300", jobs[0].ID)
	assert.Equal(t, "200", jobs[1].ID)
	assert.Equal(t, "100", jobs[2].ID)
}

func TestJobsEmptyQueue(t *testing.T) {
	f := newFake()
	f.outputs["squeue"] = "\n"
	c := testCluster(f)

	jobs, err := c.Jobs("lora_")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestParseFindOutputAndOrdering(t *testing.T) {
	out := strings.Join([]string{
		"1755900000.5000000000 /home/u/llm-finetune/output/arxiv_gpt5_article_11111.jsonl",
		"1755990000.1234567890 /home/u/llm-finetune/output/arxiv_gpt5_article_12345.jsonl",
		"garbage line",
		"1755800000.0000000000 /home/u/llm-finetune/output/arxiv_gpt5_article_10000.jsonl",
	}, "\n")

	f := newFake()
	f.outputs["find"] = out
	c := testCluster(f)

	files, err := c.ListOutputs("/home/u/llm-finetune/output", "arxiv_gpt5_article_*.jsonl")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "/home/u/llm-finetune/output/arxiv_gpt5_article_12345.jsonl", files[0].Path)
	assert.True(t, files[0].ModTime.After(files[1].ModTime))
	assert.Equal(t, "/home/u/llm-finetune/output/arxiv_gpt5_article_10000.jsonl", files[2].Path)
	assert.WithinDuration(t, time.Unix(1755990000, 0), files[0].ModTime, time.Second)
}

func TestPushBuildsRsyncAndWrapsFailure(t *testing.T) {
	f := newFake()
	c := testCluster(f)

	require.NoError(t, c.Push("llm-finetune", []string{"/a/train.jsonl", "/a/val.jsonl"}))
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"rsync", "-az", "--checksum",
		"/a/train.jsonl", "/a/val.jsonl", "user@login:llm-finetune/"}, f.calls[0])

	f.errs["rsync"] = errors.New("connection reset")
	err := c.Push("llm-finetune", []string{"/a/train.jsonl"})
	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Dest, "user@login:llm-finetune/")
}

func TestEnsureLayout(t *testing.T) {
	f := newFake()
	c := testCluster(f)
	require.NoError(t, c.EnsureLayout("llm-finetune"))
	require.Len(t, f.calls, 1)
	line := strings.Join(f.calls[0], " ")
	assert.Contains(t, line, "mkdir -p llm-finetune llm-finetune/logs llm-finetune/output")
}

func TestFileExists(t *testing.T) {
	f := newFake()
	f.outputs["test -f"] = "FOUND\n"
	c := testCluster(f)

	ok, err := c.FileExists("/out/x.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)

	f.outputs["test -f"] = "MISSING\n"
	ok, err = c.FileExists("/out/x.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchDestination(t *testing.T) {
	f := newFake()
	c := testCluster(f)
	dest := t.TempDir()

	local, err := c.Fetch("llm-finetune/output/arxiv_gpt5_article_12345.jsonl", dest)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(local, "arxiv_gpt5_article_12345.jsonl"))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "rsync", f.calls[0][0])
	assert.Contains(t, f.callLines()[0], fmt.Sprintf("user@login:llm-finetune/output/arxiv_gpt5_article_12345.jsonl %s", local))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}
