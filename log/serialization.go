package log

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xllconnector/xll-sdk/go/application/dispatch"
	"github.com/xllconnector/xll-sdk/go/application/retval"
	sdkerrors "github.com/xllconnector/xll-sdk/go/domain/errors"
	"github.com/xllconnector/xll-sdk/go/domain/value"
)

// LogMessageWire is the JSON form of one log record.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    *SourceWire   `json:"source,omitempty"`
	Context   *ContextWire  `json:"context,omitempty"`
}

// SourceWire is the source location of a record.
type SourceWire struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Line     int    `json:"line"`
}

// ContextWire carries the call identity recorded in the context.
type ContextWire struct {
	Function string `json:"function,omitempty"`
	Thread   uint64 `json:"thread"`
}

// contextToWire extracts the exported function and host thread from ctx.
// It returns nil outside a function call.
func contextToWire(ctx context.Context) *ContextWire {
	if ctx == nil {
		return nil
	}
	fn, hasFn := dispatch.FunctionFromContext(ctx)
	thread, hasThread := retval.ThreadFromContext(ctx)
	if !hasFn && !hasThread {
		return nil
	}
	return &ContextWire{Function: fn, Thread: uint64(thread)}
}

// LogAttrWire is one flattened attribute. Type names the Go kind of the
// value ("string", "int64", "float64", "error", "value", "json", ...); Value
// is its text form.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

func toLogAttrWire(attr slog.Attr) LogAttrWire {
	v := attr.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return LogAttrWire{Key: attr.Key, Type: "string", Value: v.String()}
	case slog.KindInt64:
		return LogAttrWire{Key: attr.Key, Type: "int64", Value: strconv.FormatInt(v.Int64(), 10)}
	case slog.KindUint64:
		return LogAttrWire{Key: attr.Key, Type: "uint64", Value: strconv.FormatUint(v.Uint64(), 10)}
	case slog.KindBool:
		return LogAttrWire{Key: attr.Key, Type: "bool", Value: strconv.FormatBool(v.Bool())}
	case slog.KindFloat64:
		return LogAttrWire{Key: attr.Key, Type: "float64", Value: strconv.FormatFloat(v.Float64(), 'g', -1, 64)}
	case slog.KindTime:
		return LogAttrWire{Key: attr.Key, Type: "time", Value: v.Time().Format(time.RFC3339Nano)}
	case slog.KindDuration:
		return LogAttrWire{Key: attr.Key, Type: "duration", Value: v.Duration().String()}
	case slog.KindAny:
		return anyToWire(attr.Key, v.Any())
	default:
		// Groups are flattened by the handler before conversion.
		return LogAttrWire{Key: attr.Key, Type: "any", Value: v.String()}
	}
}

func anyToWire(key string, x any) LogAttrWire {
	switch x := x.(type) {
	case nil:
		return LogAttrWire{Key: key, Type: "any", Value: "<nil>"}
	case value.Value:
		return LogAttrWire{Key: key, Type: "value", Value: x.String()}
	case *value.Value:
		if x == nil {
			return LogAttrWire{Key: key, Type: "value", Value: "<nil>"}
		}
		return LogAttrWire{Key: key, Type: "value", Value: x.String()}
	case value.ErrorCode:
		return LogAttrWire{Key: key, Type: "value", Value: x.String()}
	case error:
		// Typed SDK errors carry their category, e.g. "error:conversion".
		typ := "error"
		var de sdkerrors.DetailedError
		if stdErrors.As(x, &de) {
			if d := de.ToErrorDetail(); d != nil && d.Type != "" {
				typ += ":" + d.Type
			}
		}
		return LogAttrWire{Key: key, Type: typ, Value: x.Error()}
	}
	if data, err := json.Marshal(x); err == nil {
		return LogAttrWire{Key: key, Type: "json", Value: string(data)}
	}
	return LogAttrWire{Key: key, Type: "any", Value: fmt.Sprintf("%v", x)}
}
