package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/tlvu/thunderbird/internal/climos"
	"github.com/tlvu/thunderbird/internal/dataset"
)

// errKind names an error class for diagnostic report lines, which read as
// "<ErrorKind>: <message>". The kinds mirror the names long-standing report
// consumers match on.
func errKind(err error) string {
	var missingAttr *dataset.MissingAttributeError
	var toolErr *climos.ToolError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "FileNotFoundError"
	case errors.Is(err, fs.ErrPermission):
		return "PermissionError"
	case errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	case errors.As(err, &missingAttr):
		return "AttributeError"
	case errors.As(err, &toolErr):
		return "ToolError"
	case errors.As(err, &syntaxErr):
		return "FormatError"
	}

	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "errorString", "wrapError", "joinError":
		return "Error"
	}
	return name
}
