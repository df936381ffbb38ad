package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arcanehq/arcane/internal/configs"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/briandowns/spinner"
	"github.com/spf13/pflag"
)

// repoPath is the --repo flag. Set stores the absolute path.
type repoPath string

var _ pflag.Value = (*repoPath)(nil)

func (p *repoPath) String() string { return string(*p) }

func (p *repoPath) Set(v string) error {
	abs, err := filepath.Abs(v)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", v, err)
	}
	*p = repoPath(abs)
	return nil
}

func (p *repoPath) Type() string { return "path" }

// startSpinner creates a spinner with the given message. It only animates
// when stdout is a terminal and neither --verbose nor --debug is set, so log
// lines and piped output stay readable.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup
// function prints the final message through ui.EnsureNewline.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	animate := !verbose && !debug && utils.IsStdoutTerminal()
	if animate {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}
		if animate {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// newSession resolves the user's paths, config and identities, and the
// repository from --repo or the working directory. When needRepo is false
// a session outside any repository is returned instead of an error.
func newSession(needRepo bool) (*keyring.Session, error) {
	user, err := configs.DefaultUserPaths()
	if err != nil {
		return nil, err
	}
	cfg, err := configs.LoadConfig(user.ConfigFile)
	if err != nil {
		return nil, err
	}

	root, err := utils.FindRepoRoot(string(repoFlag))
	if err != nil {
		if needRepo || repoFlag != "" {
			return nil, err
		}
		Logger.Debugf("No repository: %v", err)
		root = ""
	}
	Logger.Debugf("Repository root: %q, arcane home: %s", root, user.Dir)

	return keyring.NewSession(keyring.Options{
		RepoRoot: root,
		User:     user,
		Config:   cfg,
		Logger:   Logger,
	})
}

// confirm asks a yes/no question on the terminal. Without an interactive
// stdin it answers no, so scripts must pass --force.
func confirm(s *spinner.Spinner, question string) bool {
	if !utils.IsTerminal() {
		Logger.Debugf("stdin is not a terminal, treating %q as declined", question)
		return false
	}
	if s.Active() {
		s.Stop()
		defer s.Start()
	}

	fmt.Printf("%s [y/N]: ", question)
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
