/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/shell"
	"github.com/caiflower/regate/pkg/tools"
)

const (
	repoNamePattern = `^[A-Za-z0-9_]+$`
	indexFileName   = "config.json"
	exportMarker    = "git-daemon-export-ok"
	// cargo still expects the index branch to be called master
	indexBranch   = "master"
	commitMessage = "(regate): Initializing repo"
)

type indexConfig struct {
	DL  string `json:"dl"`
	API string `json:"api"`
}

// Prepare creates the git storage root, resolves it to a canonical path and
// makes sure every configured repository index is ready to be served. It
// returns the canonical root.
func Prepare(ctx context.Context, c *config.Config) (string, error) {
	if err := tools.Mkdir(c.Git.Path, 0755); err != nil {
		return "", fmt.Errorf("creating git storage %s: %w", c.Git.Path, err)
	}
	root, err := filepath.Abs(c.Git.Path)
	if err != nil {
		return "", err
	}
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return "", err
	}

	for _, name := range c.Repos.Names() {
		if err = EnsureIndex(ctx, root, c.Git, c.PublicURL, name); err != nil {
			return "", err
		}
	}
	logger.Debug("[bootstrap] initialized with %d repos under %s", len(c.Repos), root)
	return root, nil
}

// EnsureIndex sets up the index repository <root>/<name>. Every step is skipped
// when its result already exists, so it is safe to run on each start.
func EnsureIndex(ctx context.Context, root string, git config.GitConfig, publicURL, name string) error {
	if !tools.MatchReg(name, repoNamePattern) {
		return fmt.Errorf("repo names must match [a-zA-Z0-9_]. Got: %s", name)
	}

	dir := filepath.Join(root, name)
	if !tools.FileExist(dir) {
		logger.Info("[bootstrap] initializing repo: %s (creating folder at: %s)", name, dir)
		if err := os.Mkdir(dir, 0755); err != nil {
			return fmt.Errorf("initializing repo %s: %w", name, err)
		}
	}

	if !tools.FileExist(filepath.Join(dir, ".git")) {
		logger.Debug("[bootstrap] initializing repo: %s (initializing git)", name)
		if err := runGit(ctx, git, dir, "init", "-b", indexBranch); err != nil {
			return fmt.Errorf("failed to initialize fresh repo (%s): %w", name, err)
		}
	}

	marker := filepath.Join(dir, ".git", exportMarker)
	if !tools.FileExist(marker) {
		logger.Debug("[bootstrap] initializing repo: %s (setting git cgi export)", name)
		if err := os.WriteFile(marker, nil, 0644); err != nil {
			return fmt.Errorf("marking repo %s for git export: %w", name, err)
		}
	}

	indexFile := filepath.Join(dir, indexFileName)
	if tools.FileExist(indexFile) {
		return nil
	}
	logger.Debug("[bootstrap] initializing repo: %s (setting up cargo repo config)", name)
	content, err := indexConfigJSON(publicURL, name)
	if err != nil {
		return err
	}
	if err = os.WriteFile(indexFile, content, 0644); err != nil {
		return err
	}
	if err = runGit(ctx, git, dir, "add", indexFileName); err != nil {
		return fmt.Errorf("failed to initialize repo %s - couldn't add initial config file to git: %w", name, err)
	}
	if err = runGit(ctx, git, dir, "-c", "commit.gpgsign=false", "commit", "-m", commitMessage, "--author", git.Author(), "--", indexFileName); err != nil {
		return fmt.Errorf("failed to initialize repo %s - couldn't commit initial config file: %w", name, err)
	}
	return nil
}

func indexConfigJSON(publicURL, name string) ([]byte, error) {
	base := strings.TrimRight(publicURL, "/") + "/repo/" + name
	content, err := tools.MarshalIndent(&indexConfig{DL: base + "/api/v1/crates", API: base})
	if err != nil {
		return nil, err
	}
	return append(content, '\n'), nil
}

func runGit(ctx context.Context, git config.GitConfig, dir string, args ...string) error {
	cmd := &shell.Command{
		Name: git.Binary,
		Args: args,
		Dir:  dir,
		Env: []string{
			"GIT_AUTHOR_NAME=" + git.AuthorName,
			"GIT_AUTHOR_EMAIL=" + git.AuthorEmail,
			"GIT_COMMITTER_NAME=" + git.AuthorName,
			"GIT_COMMITTER_EMAIL=" + git.AuthorEmail,
		},
	}
	if git.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, git.Timeout)
		defer cancel()
	}

	result, err := cmd.Run(ctx)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		logger.Error("[bootstrap] git %s: %s", strings.Join(args, " "), result.Errout.String())
		return fmt.Errorf("git %s: exit status %d", args[0], result.ExitCode)
	}
	return nil
}
