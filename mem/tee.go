package mem

import (
	"context"
	"fmt"
	"io"

	"lesiw.io/fs"

	"lesiw.io/puppet"
)

// tee copies stdin to stdout and to every file.
func (m *machine) tee(paths []string) body {
	return func(
		ctx context.Context, stdin io.Reader, stdout, stderr io.Writer,
	) error {
		writers := []io.Writer{stdout}
		var status error
		for _, path := range paths {
			fw, err := fs.Create(ctx, m.FS(), path)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "tee: %s: %v\n", path, err)
				status = &puppet.Error{Code: 1}
				continue
			}
			defer fw.Close()
			writers = append(writers, fw)
		}
		if _, err := io.Copy(io.MultiWriter(writers...), stdin); err != nil {
			return err
		}
		return status
	}
}
