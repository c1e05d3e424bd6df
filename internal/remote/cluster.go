package remote

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Cluster is one remote host reached over ssh. All operations block until
// the underlying process exits; there is no retry policy anywhere — failures
// surface to the caller.
type Cluster struct {
	Host string

	cmd Commander
	log zerolog.Logger
}

// New returns a Cluster for host.
func New(host string, cmd Commander, log zerolog.Logger) *Cluster {
	return &Cluster{Host: host, cmd: cmd, log: log.With().Str("host", host).Logger()}
}

// TransferError reports a failed file transfer. No partial submission
// follows one.
type TransferError struct {
	Dest string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer to %s failed: %v", e.Dest, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// run executes argv on the remote host.
func (c *Cluster) run(argv ...string) error {
	return c.cmd.Run("ssh", append([]string{c.Host}, argv...)...)
}

// output executes argv on the remote host and captures combined output.
func (c *Cluster) output(argv ...string) (string, error) {
	return c.cmd.Output("ssh", append([]string{c.Host}, argv...)...)
}

// EnsureLayout creates the working directory and its logs/ and output/
// subdirectories on the remote host.
func (c *Cluster) EnsureLayout(dir string) error {
	return c.run("mkdir", "-p",
		dir,
		filepath.ToSlash(filepath.Join(dir, "logs")),
		filepath.ToSlash(filepath.Join(dir, "output")))
}

// Push transfers the given local files into dir on the remote host using an
// incremental, compressed, checksum-aware rsync. The transfer is
// all-or-nothing from the caller's perspective.
func (c *Cluster) Push(dir string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	dest := fmt.Sprintf("%s:%s/", c.Host, strings.TrimRight(dir, "/"))
	args := append([]string{"-az", "--checksum"}, files...)
	args = append(args, dest)
	c.log.Info().Strs("files", files).Str("dest", dest).Msg("syncing files")
	if err := c.cmd.Run("rsync", args...); err != nil {
		return &TransferError{Dest: dest, Err: err}
	}
	return nil
}

// FileExists reports whether path exists as a regular file on the remote
// host. The check runs through bash so a missing file is an answer, not an
// ssh-level failure.
func (c *Cluster) FileExists(path string) (bool, error) {
	out, err := c.output("bash", "-lc",
		fmt.Sprintf("test -f %s && echo FOUND || echo MISSING", shellQuote(path)))
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "FOUND"), nil
}

// Fetch copies one remote file into local directory destDir.
func (c *Cluster) Fetch(remotePath, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure destination %s: %w", destDir, err)
	}
	src := fmt.Sprintf("%s:%s", c.Host, remotePath)
	local := filepath.Join(destDir, filepath.Base(remotePath))
	c.log.Info().Str("src", src).Str("dest", local).Msg("fetching file")
	if err := c.cmd.Run("rsync", "-az", "--checksum", src, local); err != nil {
		return "", &TransferError{Dest: local, Err: err}
	}
	return local, nil
}
