// Package paths converts user-supplied paths into absolute local paths.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Strategy records how a path was turned into an absolute one.
type Strategy string

const (
	// StrategyAbsolute means the input was already absolute.
	StrategyAbsolute Strategy = "absolute"
	// StrategyLocalBase means the input was joined onto the tool's local base directory.
	StrategyLocalBase Strategy = "local-base"
	// StrategyParentRelative means the input started with "../" and was
	// resolved against the process working directory.
	StrategyParentRelative Strategy = "parent-relative"
)

// ResolvedPath is an absolute path plus the strategy that produced it.
type ResolvedPath struct {
	Path     string
	Strategy Strategy
}

// ResolutionError reports a parent-relative path whose directory does not exist.
type ResolutionError struct {
	Input string
	Dir   string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s: directory %s does not exist", e.Input, e.Dir)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Normalize resolves p to an absolute path.
//
// Already-absolute paths pass through unchanged. Paths beginning with "../"
// resolve against the process working directory, not base: the directory part
// must exist, and a ResolutionError is returned when it does not. This lets a
// caller name a file relative to wherever they invoked the tool from, as
// opposed to the tool's fixed local directory. Everything else joins onto base.
func Normalize(p, base string) (ResolvedPath, error) {
	if filepath.IsAbs(p) {
		return ResolvedPath{Path: p, Strategy: StrategyAbsolute}, nil
	}
	if strings.HasPrefix(p, ".."+string(filepath.Separator)) || strings.HasPrefix(p, "../") {
		dir := filepath.Dir(p)
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return ResolvedPath{}, &ResolutionError{Input: p, Dir: dir, Err: err}
		}
		info, err := os.Stat(absDir)
		if err != nil || !info.IsDir() {
			return ResolvedPath{}, &ResolutionError{Input: p, Dir: absDir, Err: err}
		}
		return ResolvedPath{
			Path:     filepath.Join(absDir, filepath.Base(p)),
			Strategy: StrategyParentRelative,
		}, nil
	}
	return ResolvedPath{Path: filepath.Join(base, p), Strategy: StrategyLocalBase}, nil
}

// ExpandHome expands a leading "~" to the user's home directory and returns
// the absolute form of p. Empty input stays empty.
func ExpandHome(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		rest := strings.TrimPrefix(p, "~")
		rest = strings.TrimPrefix(rest, "/")
		if rest == "" {
			p = home
		} else {
			p = filepath.Join(home, rest)
		}
	}
	return filepath.Abs(p)
}
