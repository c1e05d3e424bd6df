package remote

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RemoteFile is one result file on the cluster.
type RemoteFile struct {
	Path    string
	ModTime time.Time
}

// ListOutputs returns the files directly under dir matching the shell
// pattern, sorted by modification time descending. The remote side emits
// "%T@ %p" lines; ordering is an explicit local comparator, never the remote
// tool's default sort.
func (c *Cluster) ListOutputs(dir, pattern string) ([]RemoteFile, error) {
	script := fmt.Sprintf("find %s -maxdepth 1 -type f -name %s -printf '%%T@ %%p\\n'",
		shellQuote(dir), shellQuote(pattern))
	out, err := c.output("bash", "-lc", script)
	if err != nil {
		return nil, fmt.Errorf("list outputs under %s: %w", dir, err)
	}
	files := parseFindOutput(out)
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// parseFindOutput parses "epoch.fraction path" lines. Malformed lines are
// skipped.
func parseFindOutput(out string) []RemoteFile {
	var files []RemoteFile
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sep := strings.IndexByte(line, ' ')
		if sep <= 0 || sep == len(line)-1 {
			continue
		}
		epoch, err := strconv.ParseFloat(line[:sep], 64)
		if err != nil {
			continue
		}
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * 1e9)
		files = append(files, RemoteFile{
			Path:    strings.TrimSpace(line[sep+1:]),
			ModTime: time.Unix(sec, nsec),
		})
	}
	return files
}
