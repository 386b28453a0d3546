//go:build lint

package puppet_test

import (
	"testing"

	"lesiw.io/puppet/internal/testcheck"
)

func TestLint(t *testing.T) { testcheck.Run(t) }
