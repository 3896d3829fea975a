package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestExtensionMechanism(t *testing.T) {
	if testing.Short() {
		t.Skip("compiles binaries")
	}
	tempDir := t.TempDir()

	// folio-hello prints the environment it receives.
	helloCmdSource := fmt.Sprintf(`
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Printf("%s=%%s\n", os.Getenv("%s"))
	fmt.Printf("%s=%%s\n", os.Getenv("%s"))
	fmt.Printf("args=%%v\n", os.Args[1:])
}
`, EnvConfigFile, EnvConfigFile, EnvVerbose, EnvVerbose)

	helloCmdPath := filepath.Join(tempDir, "folio-hello")
	srcFile := helloCmdPath + ".go"
	if err := os.WriteFile(srcFile, []byte(helloCmdSource), 0644); err != nil {
		t.Fatalf("Failed to write folio-hello source: %v", err)
	}
	build := exec.Command("go", "build", "-o", helloCmdPath, srcFile)
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile folio-hello: %v", err)
	}

	folioBinaryPath := filepath.Join(tempDir, "folio")
	build = exec.Command("go", "build", "-o", folioBinaryPath, "../folio")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to compile folio binary: %v", err)
	}

	expectedConfigFile := filepath.Join(tempDir, "random.yaml")
	args := []string{
		"-config", expectedConfigFile,
		"-v",
		"hello", // the extension subcommand
		"world",
	}
	folioCmd := exec.Command(folioBinaryPath, args...)
	folioCmd.Env = []string{"PATH=" + tempDir + string(os.PathListSeparator) + os.Getenv("PATH")}

	var stdout, stderr bytes.Buffer
	folioCmd.Stdout = &stdout
	folioCmd.Stderr = &stderr
	if err := folioCmd.Run(); err != nil {
		t.Fatalf("folio command failed: %v\nStdout: %s\nStderr: %s", err, stdout.String(), stderr.String())
	}

	output := stdout.String()
	for _, expectedLine := range []string{
		EnvConfigFile + "=" + expectedConfigFile,
		EnvVerbose + "=" + strconv.FormatBool(true),
		"args=[world]",
	} {
		if !strings.Contains(output, expectedLine) {
			t.Errorf("Expected output to contain %q, but got:\n%s", expectedLine, output)
		}
	}
}

func TestRunExtension_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if found, code := RunExtension("does-not-exist", nil); found || code != 0 {
		t.Errorf("RunExtension() = %v, %d, want false, 0", found, code)
	}
}
