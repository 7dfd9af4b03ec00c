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

package tools

import (
	"strings"

	"github.com/google/uuid"
)

// UUID returns a time based uuid without dashes.
func UUID() string {
	u, _ := uuid.NewUUID()
	return strings.Replace(u.String(), "-", "", 4)
}

// RandomID returns n random v4 uuids joined without dashes. It is used where
// the value must not be guessable.
func RandomID(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		u, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.Replace(u.String(), "-", "", 4))
	}
	return sb.String(), nil
}
