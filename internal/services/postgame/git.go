package postgame

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs an external command in a working directory
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// GitConfig configures a GitPublisher
type GitConfig struct {
	// Token is a GitHub token used to authenticate the push
	Token string
	// Repo is the remote without scheme, e.g. github.com/owner/repo.git
	Repo string
	// Branch defaults to main
	Branch string
	// WorkDir is the repository checkout, defaults to the process directory
	WorkDir string
	// LogPath is committed alongside the summaries
	LogPath string
}

// GitPublisher commits summaries and the completion log and pushes them
type GitPublisher struct {
	runner CommandRunner
	cfg    GitConfig
	logger *slog.Logger
}

// NewGitPublisher creates a GitPublisher. A nil runner uses ExecRunner.
func NewGitPublisher(runner CommandRunner, cfg GitConfig, logger *slog.Logger) *GitPublisher {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
	return &GitPublisher{runner: runner, cfg: cfg, logger: logger}
}

func (p *GitPublisher) Publish(ctx context.Context, summary *Summary, path string) error {
	if p.cfg.Token == "" || p.cfg.Repo == "" {
		p.logger.Info("skipping git publish, GITHUB_TOKEN or GITHUB_REPO not set")
		return nil
	}

	remote := fmt.Sprintf("https://%s:x-oauth-basic@%s", p.cfg.Token, p.cfg.Repo)
	steps := [][]string{
		{"add", filepath.Dir(path), p.cfg.LogPath},
		{"commit", "-m", fmt.Sprintf("Update results for game %d", summary.GameID)},
		{"remote", "set-url", "origin", remote},
		{"push", "origin", p.cfg.Branch},
	}
	for _, args := range steps {
		if err := p.runner.Run(ctx, p.cfg.WorkDir, "git", args...); err != nil {
			// Never echo the remote URL, it carries the token
			return fmt.Errorf("git %s failed: %w", args[0], redact(err, p.cfg.Token))
		}
	}

	p.logger.Info("pushed game summary", slog.Int64("game_id", int64(summary.GameID)))
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
