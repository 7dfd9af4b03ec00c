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

package pool

import (
	"fmt"
	"sync"
)

// DoFuncString calls fn once for every item on at most poolSize goroutines and
// waits for all of them. poolSize <= 0 means one goroutine per item.
func DoFuncString(poolSize int, fn func(string), items ...string) error {
	if fn == nil {
		return fmt.Errorf("nil func error")
	}
	if len(items) == 0 {
		return nil
	}
	if poolSize <= 0 || poolSize > len(items) {
		poolSize = len(items)
	}

	c := make(chan string)
	var wg sync.WaitGroup
	wg.Add(poolSize)
	for i := 0; i < poolSize; i++ {
		go func() {
			defer wg.Done()
			for v := range c {
				fn(v)
			}
		}()
	}
	for _, v := range items {
		c <- v
	}
	close(c)
	wg.Wait()
	return nil
}
