// Package remote reaches the cluster through ssh and rsync child processes.
// Their exit status and stdout text are the only contract; timeouts belong
// to the underlying transport.
package remote

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Commander runs a local command. Tests substitute a recording fake; the
// production implementation shells out.
type Commander interface {
	// Run executes the command, streaming output to the terminal.
	Run(name string, args ...string) error
	// Output executes the command and captures combined output.
	Output(name string, args ...string) (string, error)
}

type execCommander struct {
	log zerolog.Logger
}

// NewCommander returns the exec-backed Commander.
func NewCommander(log zerolog.Logger) Commander {
	return &execCommander{log: log}
}

func (c *execCommander) Run(name string, args ...string) error {
	c.log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (c *execCommander) Output(name string, args ...string) (string, error) {
	c.log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %v (output: %s)", name, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// shellQuote single-quotes s for use inside a remote bash -c command line.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, `'`, `'"'"'`) + "'"
}
