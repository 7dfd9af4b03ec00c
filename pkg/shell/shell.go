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

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type Result struct {
	Stdout   bytes.Buffer
	Errout   bytes.Buffer
	ExitCode int
}

// Command describes one process invocation. Env entries are appended to the
// parent environment unless ClearEnv is set.
type Command struct {
	Name     string
	Args     []string
	Dir      string
	Env      []string
	ClearEnv bool
	Stdin    io.Reader
}

// Run starts the process and waits for it. A non-zero exit is reported through
// Result.ExitCode, not as an error; err is set only when the process could not
// be run at all.
func (c *Command) Run(ctx context.Context) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.ClearEnv {
		cmd.Env = append([]string{}, c.Env...)
	} else if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin

	result := &Result{}
	cmd.Stdout = &result.Stdout
	cmd.Stderr = &result.Errout

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, err
}

// Exec exec os command
func Exec(name string, args ...string) (*Result, error) {
	return ExecInDir(name, "", args...)
}

// ExecInDir runs name in dir and fails on a non-zero exit, quoting stderr.
func ExecInDir(name string, dir string, args ...string) (*Result, error) {
	c := &Command{Name: name, Args: args, Dir: dir}
	result, err := c.Run(context.Background())
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("%s %s: exit status %d: %s", name, strings.Join(args, " "), result.ExitCode, strings.TrimSpace(result.Errout.String()))
	}
	return result, nil
}
