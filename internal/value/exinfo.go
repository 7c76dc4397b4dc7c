package value

// ExceptionInfo is clover's ex-info value: a message, an arbitrary data
// map, and a Kind tag used by `try`/`catch` matching since the runtime
// has no class hierarchy (Non-goal: no user type system / Java
// interop). Kind defaults to "user-exception" for (ex-info ...) and is
// set to the matching rterr.Kind string when a native runtime error is
// caught and reified so it can be inspected or rethrown from clover
// code.
type ExceptionInfo struct {
	Message string
	Data    *PersistentMap
	Kind    string
	Cause   Value // optional wrapped exception, nil if none
}

func NewExceptionInfo(message string, data *PersistentMap, kind string) *ExceptionInfo {
	if data == nil {
		data = EmptyMap()
	}
	return &ExceptionInfo{Message: message, Data: data, Kind: kind}
}

func (e *ExceptionInfo) Tag() Tag { return TagExceptionInfo }

func (e *ExceptionInfo) Hash() uint32 {
	return hashBytes([]byte(e.Kind)) ^ hashBytes([]byte(e.Message))*31
}

func (e *ExceptionInfo) Error() string { return e.Message }
