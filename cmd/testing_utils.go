// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and running the CLI in-process.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcanehq/arcane/internal/configs"
	logger "github.com/arcanehq/arcane/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// testEnv holds the directories of one test run.
type testEnv struct {
	home string
	repo string
}

// setupTestEnvironment points ARCANE_HOME at a temporary directory, creates
// a repository with a bare .git directory and changes into it.
func setupTestEnvironment(t *testing.T) testEnv {
	t.Helper()
	env := testEnv{home: t.TempDir(), repo: t.TempDir()}
	if err := os.Mkdir(filepath.Join(env.repo, ".git"), 0o755); err != nil {
		t.Fatalf("Failed to create .git directory: %v", err)
	}

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(env.repo); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}
	t.Setenv(configs.HomeEnv, env.home)
	t.Setenv("NO_COLOR", "1")

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		ArcaneCmd.SetIn(nil)
		ArcaneCmd.SetOut(nil)
		ArcaneCmd.SetErr(nil)
		ResetGlobalState()
	})
	return env
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// runCLI executes ArcaneCmd with args and returns everything it printed.
func runCLI(args ...string) (string, error) {
	ResetGlobalState()
	resetFlagState(ArcaneCmd)
	Logger = logger.Logger{}
	ArcaneCmd.SetArgs(args)
	return captureOutput(func() error {
		_, err := ArcaneCmd.ExecuteC()
		return err
	})
}

// resetFlagState clears the Changed markers left by previous runs.
func resetFlagState(c *cobra.Command) {
	c.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlagState(sub)
	}
}

// mustRun fails the test when the command fails.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	output, err := runCLI(args...)
	if err != nil {
		t.Fatalf("arcane %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}
