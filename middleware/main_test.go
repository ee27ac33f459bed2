package middleware

import (
	"fmt"
	"os"
	"testing"
)

// TestMain ensures GO_ENV is "test" before any middleware test runs
func TestMain(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		os.Setenv("GO_ENV", "test")
		env = "test"
	}
	if env != "test" {
		fmt.Fprintf(os.Stderr, "SAFETY CHECK FAILED: tests must run with GO_ENV=test (current GO_ENV=%q)\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
