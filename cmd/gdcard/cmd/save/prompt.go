package save

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/gdcard/pkg/progress"
)

// PromptConfirmer asks question on out and reads a y/N answer from in.
// Anything but y or yes declines.
func PromptConfirmer(in io.Reader, out io.Writer) progress.Confirmer {
	reader := bufio.NewReader(in)
	return progress.ConfirmFunc(func(ctx context.Context, question string) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := fmt.Fprintf(out, "%s [y/N]: ", question); err != nil {
			return false, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
