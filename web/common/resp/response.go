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

package resp

import (
	"github.com/caiflower/regate/pkg/tools"
	"github.com/caiflower/regate/web/common/e"
	"github.com/caiflower/regate/web/protocol"
)

const contentTypeJSON = "application/json"

type Result struct {
	RequestId string
	Data      interface{} `json:",omitempty"`
	Error     *e.Error    `json:",omitempty"`
}

// JSON renders v as an application/json response with the given status.
func JSON(status int, v interface{}) (*protocol.Response, error) {
	body, err := tools.Marshal(v)
	if err != nil {
		return nil, err
	}
	return protocol.NewResponseBuilder(status).ContentType(contentTypeJSON).Body(body).Build()
}

// Error renders apiErr inside a Result envelope tagged with requestID. Its
// status is the error's code.
func Error(requestID string, apiErr *e.Error) *protocol.Response {
	r, err := JSON(apiErr.GetCode(), &Result{RequestId: requestID, Error: apiErr})
	if err != nil {
		return protocol.Err(apiErr.GetCode())
	}
	return r
}
