package mem

import (
	"context"
	"fmt"
	"io"
	"strings"
)

func echo(args []string) body {
	return func(_ context.Context, _ io.Reader, stdout, _ io.Writer) error {
		_, err := fmt.Fprintln(stdout, strings.Join(args, " "))
		return err
	}
}
