package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/joho/godotenv"

	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/secrets"
)

// RunOptions configures running a command with secrets in its environment.
type RunOptions struct {
	// File is a sealed or plaintext dotenv file.
	File string

	// Command is the program and its arguments.
	Command []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunResult contains the outcome of the command.
type RunResult struct {
	// Variables lists the names injected from File.
	Variables []string

	ExitCode int
}

// Run loads File, decrypting it when sealed, and runs Command with its
// variables added to the current environment. Variables from File win over
// inherited ones. A non-zero exit is reported in ExitCode, not as an error.
func Run(ctx context.Context, s *keyring.Session, opts RunOptions) (*RunResult, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("no command given")
	}

	vars, err := LoadEnvFile(ctx, s, opts.File)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	env := os.Environ()
	for name, value := range vars {
		env = append(env, name+"="+value)
		result.Variables = append(result.Variables, name)
	}
	sort.Strings(result.Variables)

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Env = env
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("running %s: %w", opts.Command[0], err)
	}
	return result, nil
}

// LoadEnvFile reads a dotenv file, opening it first when it is sealed.
func LoadEnvFile(ctx context.Context, s *keyring.Session, file string) (map[string]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	if secrets.IsSealed(data) {
		plaintext, _, err := openSealed(ctx, s, data)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", file, err)
		}
		defer secrets.Zero(plaintext)
		data = plaintext
	}

	vars, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return vars, nil
}
