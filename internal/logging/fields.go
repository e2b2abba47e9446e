package logging

// Standard attribute keys. Console output promotes FieldComponent into the
// line prefix; everything else is rendered as key=value.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"

	FieldBackend   = "backend"
	FieldProject   = "project"
	FieldCell      = "cell"
	FieldDocument  = "document"
	FieldRequestID = "request_id"
	FieldRuntime   = "runtime"
)
