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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWriteInfo(t *testing.T) {
	out := &closeRecorder{}
	assert.Nil(t, writeInfo(out, 43127))
	assert.Equal(t, `{"port":43127}`, out.String())
	assert.True(t, out.closed)
}

func TestRunMissingConfig(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "missing.yaml"), false, &closeRecorder{})
	assert.NotNil(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regate.yaml")
	assert.Nil(t, os.WriteFile(path, []byte("token:\n  store: etcd\n"), 0644))
	assert.NotNil(t, run(path, false, &closeRecorder{}))
}
