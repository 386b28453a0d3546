package sys

import (
	"testing"

	"lesiw.io/fs"
	"lesiw.io/fs/fstest"

	"lesiw.io/puppet"
)

func TestFSCompliance(t *testing.T) {
	ctx := fs.WithWorkDir(t.Context(), t.TempDir())
	ctx = puppet.WithEnv(ctx, map[string]string{"TZ": "UTC"})
	fstest.TestFS(ctx, t, puppet.FS(Machine()))
}
