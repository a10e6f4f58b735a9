// Package shrink wraps the external tool that rewrites a GDI image with its
// padding removed, and the list of serials the tool must not touch.
package shrink

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/logging"
)

// Shrinker rewrites the image at input into outDir.
type Shrinker interface {
	Shrink(ctx context.Context, input, outDir string) error
}

// ProcessShrinker runs a command line with the input image and output
// directory appended as the last two arguments.
type ProcessShrinker struct {
	Command string
	Timeout time.Duration
}

var _ Shrinker = (*ProcessShrinker)(nil)

// NewProcessShrinker returns a shrinker running command.
func NewProcessShrinker(command string) *ProcessShrinker {
	return &ProcessShrinker{Command: command, Timeout: constants.ShrinkTimeout}
}

// Shrink runs the tool and waits for it to exit.
func (p *ProcessShrinker) Shrink(ctx context.Context, input, outDir string) error {
	args, err := shlex.Split(p.Command)
	if err != nil {
		return errors.NewConfigError("shrink", "invalid command line", err)
	}
	if len(args) == 0 {
		return errors.NewConfigError("shrink", "no command configured", errors.ErrNotConfigured)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args = append(args, input, outDir)
	logging.FromContext(ctx).Debug().Strs("args", args).Msg("running shrink tool")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from local configuration
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return errors.Join(errors.ErrCanceled, ctxErr)
		}
		pe := errors.NewProcessError("shrink", args[0], strings.TrimSpace(string(output)), err)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pe.ExitCode = exitErr.ExitCode()
		}
		return pe
	}
	return nil
}

// Blacklist is the set of serials that must not be shrunk.
type Blacklist struct {
	serials map[string]struct{}
}

// LoadBlacklist reads path. A missing file is an empty list.
func LoadBlacklist(fs afero.Fs, path string) (*Blacklist, error) {
	f, err := fs.Open(path)
	if err != nil {
		if ok, _ := afero.Exists(fs, path); !ok {
			return &Blacklist{serials: map[string]struct{}{}}, nil
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseBlacklist(f)
}

// ParseBlacklist reads one serial per line. Blank lines and lines starting
// with # are skipped.
func ParseBlacklist(r io.Reader) (*Blacklist, error) {
	b := &Blacklist{serials: map[string]struct{}{}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.serials[normalize(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapParse("blacklist", constants.ShrinkBlacklistFile, err)
	}
	return b, nil
}

// Contains reports whether serial is listed. The comparison ignores case,
// spaces and hyphens.
func (b *Blacklist) Contains(serial string) bool {
	if b == nil || serial == "" {
		return false
	}
	_, ok := b.serials[normalize(serial)]
	return ok
}

// Len returns the number of listed serials.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.serials)
}

func normalize(serial string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(serial))
}
