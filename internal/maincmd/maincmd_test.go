package maincmd_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/emberlang/ember/internal/filetest"
	"github.com/emberlang/ember/internal/maincmd"
)

var testUpdateRunTests = flag.Bool("test.update-run-tests", false, "If set, replace expected run test results with actual results.")

// TestRun exercises the full run command (compile + interpret a script file)
// against golden stdout/stderr pairs, the same filetest-golden-file pattern
// the scanner/parser/resolver packages use upstream.
func TestRun(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	filetest.RunGoldenScripts(t, srcDir, resultDir, ".ember", testUpdateRunTests,
		func(t *testing.T, path string) (stdout, stderr string) {
			var out, errOut bytes.Buffer
			stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}

			c := &maincmd.Cmd{}
			c.Run(context.Background(), stdio, []string{path})

			return out.String(), errOut.String()
		})
}
