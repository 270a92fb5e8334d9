package logging

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// moduleRoot walks up from this file until it finds go.mod.
func moduleRoot(t *testing.T) string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine caller path")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above test file")
		}
		dir = parent
	}
}

// TestNoDirectLogging ensures source files log through this package rather
// than calling fmt.Print*/log.Print* directly.
func TestNoDirectLogging(t *testing.T) {
	root := moduleRoot(t)

	direct := regexp.MustCompile(`\b(fmt\.Print(f|ln)?|log\.Print(f|ln)?|println|print)\s*\(`)
	skip := []string{"_test.go", "main.go"}

	var violations []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if strings.HasPrefix(rel, "_examples") {
			return nil
		}
		for _, s := range skip {
			if strings.HasSuffix(rel, s) {
				return nil
			}
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Text()
			if strings.HasPrefix(strings.TrimSpace(text), "//") {
				continue
			}
			if direct.MatchString(text) {
				violations = append(violations, rel+": "+strings.TrimSpace(text))
			}
		}
		return scanner.Err()
	})
	if err != nil {
		t.Fatalf("walking module tree: %v", err)
	}

	if len(violations) > 0 {
		t.Errorf("found %d direct logging calls, use the logging package instead:", len(violations))
		for _, v := range violations {
			t.Errorf("  %s", v)
		}
	}
}
