package logging

import "time"

// Fields is a chainable structured-field builder, grounded on the teacher's
// own pkg/shared/logging Fields type: every stage/adapter builds one of
// these instead of hand-assembling key/value pairs at each call site.
type Fields map[string]interface{}

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(component string) Fields {
	f["component"] = component
	return f
}

func (f Fields) Operation(operation string) Fields {
	f["operation"] = operation
	return f
}

func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) SessionID(id string) Fields {
	if id != "" {
		f["session_id"] = id
	}
	return f
}

func (f Fields) Iteration(n int) Fields {
	f["iteration"] = n
	return f
}

func (f Fields) EffectID(id string) Fields {
	if id != "" {
		f["effect_id"] = id
	}
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(count int) Fields {
	f["count"] = count
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(version string) Fields {
	f["version"] = version
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// KeysAndValues flattens Fields into the alternating key/value slice
// logr.Logger's Info/Error variadic args expect.
func (f Fields) KeysAndValues() []interface{} {
	kv := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}

// StageFields tags a log line with the Kernel/ReAct stage that produced it.
func StageFields(stage, sessionID string) Fields {
	return NewFields().Component("stage").Operation(stage).SessionID(sessionID)
}

// CheckpointFields tags a persistence operation against the durable store.
func CheckpointFields(operation, table string) Fields {
	return NewFields().Component("checkpoint").Operation(operation).Resource("table", table)
}

// SkillFields tags a dispatch against a named skill in a named zone.
func SkillFields(operation, skill, zone string) Fields {
	f := NewFields().Component("skill").Operation(operation).Resource("skill", skill)
	if zone != "" {
		f.Custom("zone", zone)
	}
	return f
}

// LLMFields tags a call to an R2 Decide language-model backend.
func LLMFields(operation, model string) Fields {
	return NewFields().Component("llm").Operation(operation).Custom("model", model)
}

// ApprovalFields tags an R5 human-approval notification.
func ApprovalFields(operation, subject string) Fields {
	return NewFields().Component("approval").Operation(operation).Custom("subject", subject)
}

// PerformanceFields tags a timed operation with its outcome.
func PerformanceFields(operation string, d time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).Duration(d).Custom("success", success)
}

// HTTPFields tags an HTTP/WebSocket request on the reference API surface.
func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}
