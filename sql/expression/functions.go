// Copyright 2024 The FetchEngine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expression

import (
	"fmt"
	"strconv"
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// ErrorFunc evaluates one of ERROR_MESSAGE()/ERROR_NUMBER()/
// ERROR_SEVERITY()/ERROR_STATE() (§6 "Session variables"), reading the
// session context / scope rather than taking arguments.
type ErrorFunc struct {
	Which string // "MESSAGE", "NUMBER", "SEVERITY", "STATE"
}

func NewErrorFunc(which string) *ErrorFunc { return &ErrorFunc{Which: which} }

func (f *ErrorFunc) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	v, ok := ctx.Scope.Get("@@ERROR_" + f.Which)
	if !ok {
		return esql.Null, nil
	}
	return v, nil
}

func (f *ErrorFunc) String() string { return "ERROR_" + f.Which + "()" }

// FormatRaiserror substitutes %s/%d/%i placeholders in format with args, in
// source order, using spf13/cast for the coercions RAISERROR needs (§4.11).
func FormatRaiserror(format string, args []esql.Value) (string, error) {
	var sb strings.Builder
	argIdx := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i == len(format)-1 {
			sb.WriteByte(format[i])
			continue
		}
		verb := format[i+1]
		switch verb {
		case 's', 'd', 'i':
			if argIdx >= len(args) {
				return "", fmt.Errorf("raiserror: not enough arguments for format %q", format)
			}
			arg := args[argIdx]
			argIdx++
			switch verb {
			case 's':
				sb.WriteString(arg.String())
			case 'd', 'i':
				n, err := arg.Int()
				if err != nil {
					return "", err
				}
				sb.WriteString(strconv.FormatInt(n, 10))
			}
			i++
		default:
			sb.WriteByte(format[i])
		}
	}
	return sb.String(), nil
}
