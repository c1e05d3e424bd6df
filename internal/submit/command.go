package submit

import (
	"fmt"
	"regexp"
)

// Job names and scripts on the remote side. The lora_ prefix is the fixed
// name filter used when cancelling without an explicit job id.
const (
	TrainJobName  = "lora_train"
	InferJobName  = "lora_infer"
	JobNamePrefix = "lora_"

	TrainScript = "train_lora.sbatch"
	InferScript = "run_inference.sbatch"
)

// Command builds the argv executed on the remote host to submit one job.
// remoteDir is the job's working directory; the log template keeps sbatch's
// %j job-id placeholder, which the queue substitutes itself.
func Command(jobName, remoteDir, script string, exports *ExportVariableSet) []string {
	return []string{
		"sbatch",
		"--chdir=" + remoteDir,
		"--job-name=" + jobName,
		fmt.Sprintf("--output=logs/%s-%%j.out", jobName),
		"--export=ALL," + exports.String(),
		script,
	}
}

// OutputFileName is the remote result filename convention:
// {output_name}_{job_id}.jsonl.
func OutputFileName(outputName, jobID string) string {
	return fmt.Sprintf("%s_%s.jsonl", outputName, jobID)
}

// The job id is the trailing underscore-delimited numeric run of the
// filename. Anchoring on the suffix keeps output names that themselves
// contain underscores intact.
var jobIDSuffix = regexp.MustCompile(`_(\d+)\.jsonl$`)

// ParseJobID recovers the job id from a result filename produced by
// OutputFileName. Returns false when the filename does not follow the
// convention.
func ParseJobID(filename string) (string, bool) {
	m := jobIDSuffix.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}
