package mem

import (
	"context"
	"fmt"
	"io"

	"lesiw.io/fs"

	"lesiw.io/puppet"
)

// cat copies its files to stdout, or stdin if it has none.
// A file that cannot be read is reported on stderr and fails the command.
func (m *machine) cat(paths []string) body {
	return func(
		ctx context.Context, stdin io.Reader, stdout, stderr io.Writer,
	) error {
		if len(paths) == 0 {
			_, err := io.Copy(stdout, stdin)
			return err
		}
		var status error
		for _, path := range paths {
			if err := m.copyFile(ctx, stdout, path); err != nil {
				_, _ = fmt.Fprintf(stderr, "cat: %s: %v\n", path, err)
				status = &puppet.Error{Code: 1}
			}
		}
		return status
	}
}

func (m *machine) copyFile(
	ctx context.Context, w io.Writer, path string,
) error {
	f, err := fs.Open(ctx, m.FS(), path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
