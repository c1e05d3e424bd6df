// Package checkpoint locates fine-tuned adapter directories among the
// layouts a training run may have produced: the directory itself, a
// versioned checkpoint subdirectory, or a parallel output tree keyed by the
// run's short name.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// DescriptorFile marks a directory as a valid adapter.
const DescriptorFile = "adapter_config.json"

// Strategy tags which discovery layout matched.
type Strategy string

const (
	// StrategyDirect: the candidate itself contains the descriptor.
	StrategyDirect Strategy = "direct"
	// StrategyCheckpointSubdir: the highest-versioned checkpoint-N
	// subdirectory of the candidate contains the descriptor.
	StrategyCheckpointSubdir Strategy = "checkpoint-subdir"
	// StrategyOutputRoot: the candidate's base name under the output root
	// (directly or via its checkpoint subdirectories) contains the descriptor.
	StrategyOutputRoot Strategy = "output-root"
)

// AdapterLocation is the result of discovery: a directory known to contain
// the adapter descriptor at discovery time, tagged with the matching strategy.
type AdapterLocation struct {
	Dir      string
	Strategy Strategy
}

// DiscoveryError reports that no adapter descriptor was found, naming every
// location that was checked.
type DiscoveryError struct {
	Candidate string
	Fallback  string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("no %s found under %s or %s (checkpoint-N subdirectories of both were also checked)",
		DescriptorFile, e.Candidate, e.Fallback)
}

var checkpointDirName = regexp.MustCompile(`^checkpoint-(\d+)$`)

// Locate searches the fixed ordered set of layouts for an adapter directory,
// short-circuiting on the first match:
//
//  1. candidate itself contains adapter_config.json
//  2. the highest-versioned checkpoint-N subdirectory of candidate does
//  3. outputRoot/basename(candidate), searched the same way
//
// Version comparison is numeric: checkpoint-10 sorts after checkpoint-9.
func Locate(candidate, outputRoot string) (AdapterLocation, error) {
	if loc, ok := probe(candidate); ok {
		return loc, nil
	}
	fallback := filepath.Join(outputRoot, filepath.Base(candidate))
	if isDir(fallback) {
		if loc, ok := probe(fallback); ok {
			loc.Strategy = StrategyOutputRoot
			return loc, nil
		}
	}
	return AdapterLocation{}, &DiscoveryError{Candidate: candidate, Fallback: fallback}
}

// probe applies the direct and checkpoint-subdirectory layouts to dir.
func probe(dir string) (AdapterLocation, bool) {
	if hasDescriptor(dir) {
		return AdapterLocation{Dir: dir, Strategy: StrategyDirect}, true
	}
	if latest, ok := latestCheckpoint(dir); ok && hasDescriptor(latest) {
		return AdapterLocation{Dir: latest, Strategy: StrategyCheckpointSubdir}, true
	}
	return AdapterLocation{}, false
}

// latestCheckpoint returns the checkpoint-N subdirectory of dir with the
// highest numeric version.
func latestCheckpoint(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	best := -1
	name := ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := checkpointDirName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > best {
			best = n
			name = e.Name()
		}
	}
	if best < 0 {
		return "", false
	}
	return filepath.Join(dir, name), true
}

func hasDescriptor(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DescriptorFile))
	return err == nil && !info.IsDir()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
