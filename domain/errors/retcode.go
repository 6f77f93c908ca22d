package errors

import "fmt"

// HostReturnCode is the status word returned by host callbacks.
type HostReturnCode int

// Host callback return codes.
const (
	RetSuccess             HostReturnCode = 0
	RetAbort               HostReturnCode = 1
	RetInvalidFunction     HostReturnCode = 2
	RetInvalidCount        HostReturnCode = 4
	RetInvalidOperand      HostReturnCode = 8
	RetStackOverflow       HostReturnCode = 16
	RetFailed              HostReturnCode = 32
	RetUncalced            HostReturnCode = 64
	RetNotThreadSafe       HostReturnCode = 128
	RetInvalidAsyncContext HostReturnCode = 256
	RetNotClusterSafe      HostReturnCode = 512
)

var retCodeNames = map[HostReturnCode]string{
	RetSuccess:             "success",
	RetAbort:               "abort",
	RetInvalidFunction:     "invalid function",
	RetInvalidCount:        "invalid count",
	RetInvalidOperand:      "invalid operand",
	RetStackOverflow:       "stack overflow",
	RetFailed:              "failed",
	RetUncalced:            "uncalced",
	RetNotThreadSafe:       "not thread safe",
	RetInvalidAsyncContext: "invalid async context",
	RetNotClusterSafe:      "not cluster safe",
}

func (c HostReturnCode) String() string {
	if name, ok := retCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", int(c))
}
