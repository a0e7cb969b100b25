/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cloudwatch

// inputLogEvent is one record in a PutLogEvents request, per the
// Logs_20140328 JSON protocol.
type inputLogEvent struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

type putLogEventsInput struct {
	LogGroupName  string          `json:"logGroupName"`
	LogStreamName string          `json:"logStreamName"`
	LogEvents     []inputLogEvent `json:"logEvents"`
	SequenceToken *string         `json:"sequenceToken,omitempty"`
}

type putLogEventsOutput struct {
	NextSequenceToken string `json:"nextSequenceToken"`
}

type createLogGroupInput struct {
	LogGroupName string `json:"logGroupName"`
}

type createLogStreamInput struct {
	LogGroupName  string `json:"logGroupName"`
	LogStreamName string `json:"logStreamName"`
}

// apiError is the AWS JSON 1.1 error envelope. expectedSequenceToken is
// only populated for InvalidSequenceTokenException.
type apiError struct {
	Type                  string `json:"__type"`
	Message               string `json:"message"`
	ExpectedSequenceToken string `json:"expectedSequenceToken"`
}

// exceptionName strips any "namespace#" prefix AWS sometimes adds to
// __type, e.g. "com.amazonaws.logs#ResourceAlreadyExistsException".
func (e apiError) exceptionName() string {
	name := e.Type
	if i := lastIndexByte(name, '#'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
