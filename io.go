package puppet

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lesiw.io/prefix"
)

var (
	// Trace receives the command line of every started process.
	Trace = io.Discard

	// ShTrace writes traces to stderr in the style of sh -x.
	ShTrace = prefix.NewWriter("+ ", stderr)

	stderr io.Writer = os.Stderr
)

// trace writes the command line of buf to Trace, or line if buf does not
// describe itself.
func trace(buf Buffer, line string) {
	if _, ok := buf.(fmt.Stringer); ok {
		line = String(buf)
	}
	s := strings.TrimRight(line, "\n")
	if s != "" {
		_, _ = fmt.Fprintf(Trace, "%s\n", s)
	}
}
