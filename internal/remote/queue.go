package remote

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Job is a handle into the external queue's state.
type Job struct {
	ID          string
	Name        string
	SubmittedAt time.Time
}

var submittedJob = regexp.MustCompile(`Submitted batch job (\d+)`)

// Submit runs the given sbatch argv on the remote host and parses the job id
// out of the queue's "Submitted batch job N" reply.
func (c *Cluster) Submit(argv []string) (string, error) {
	out, err := c.output(argv...)
	if err != nil {
		return "", fmt.Errorf("job submission failed: %w", err)
	}
	m := submittedJob.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("unable to parse sbatch output: %q", strings.TrimSpace(out))
	}
	c.log.Info().Str("job_id", m[1]).Msg("job submitted")
	return m[1], nil
}

// Cancel cancels a job by id, unconditionally: no existence check, per the
// queue's own scancel semantics.
func (c *Cluster) Cancel(id string) error {
	if err := c.run("scancel", id); err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	c.log.Info().Str("job_id", id).Msg("job cancelled")
	return nil
}

// squeueTimeLayout is the queue's %V submit-time format.
const squeueTimeLayout = "2006-01-02T15:04:05"

// Jobs lists the invoking user's queued/running jobs whose name starts with
// namePrefix, sorted by submission time descending. squeue's own row order
// is unspecified, so the sort here is explicit; ties break on numerically
// larger id first via string comparison of equal-length ids, else raw order.
func (c *Cluster) Jobs(namePrefix string) ([]Job, error) {
	out, err := c.output("squeue", "--me", "-h", "-o", "%i|%j|%V")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := parseSqueue(out, namePrefix)
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].SubmittedAt.Equal(jobs[j].SubmittedAt) {
			return jobs[i].SubmittedAt.After(jobs[j].SubmittedAt)
		}
		if len(jobs[i].ID) != len(jobs[j].ID) {
			return len(jobs[i].ID) > len(jobs[j].ID)
		}
		return jobs[i].ID > jobs[j].ID
	})
	return jobs, nil
}

// parseSqueue parses "id|name|submit-time" lines, keeping rows whose name
// matches the prefix. Rows with an unparseable time are kept with a zero
// time so they sort last rather than vanish.
func parseSqueue(out, namePrefix string) []Job {
	var jobs []Job
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		id, name := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if !strings.HasPrefix(name, namePrefix) {
			continue
		}
		ts, _ := time.Parse(squeueTimeLayout, strings.TrimSpace(fields[2]))
		jobs = append(jobs, Job{ID: id, Name: name, SubmittedAt: ts})
	}
	return jobs
}
