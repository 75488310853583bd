// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package feedbot

import (
	"bytes"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
)

var dirs = []string{"cmd", "internal"}

func TestGofmt(t *testing.T) {
	if _, err := exec.LookPath("gofmt"); err != nil {
		t.Skip("gofmt is not installed")
	}

	var w bytes.Buffer
	gofmt := exec.Command("gofmt", append([]string{"-l"}, dirs...)...)
	gofmt.Stdout = &w
	gofmt.Stderr = &w
	if err := gofmt.Run(); err != nil {
		t.Fatalf("gofmt failed: %v\n\n%v", err, w.String())
	}
	if w.Len() > 0 {
		t.Fatalf("run gofmt on these files:\n%v", w.String())
	}
}

var copyrightHeader = regexp.MustCompile(`^// © \d{4} Ilya Mateyko\. All rights reserved\.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE\.md file\.
`)

func TestCopyright(t *testing.T) {
	t.Parallel()

	for _, dir := range dirs {
		if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if !copyrightHeader.Match(content) {
				t.Errorf("%s: missing copyright header", path)
			}
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
}
