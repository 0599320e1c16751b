// Package observability provides OpenTelemetry tracing for parsing and
// executing query models.
//
// Tracing is opt-in. Without a configured provider the no-op tracer is
// used and spans cost nothing.
package observability

import "go.opentelemetry.io/otel/attribute"

// TracerName is the instrumentation name for tracing.
const TracerName = "github.com/roach88/qmodel"

// Span names.
const (
	SpanParse    = "qmodel.parse"
	SpanExecute  = "qmodel.execute"
	SpanOperator = "qmodel.operator"
	SpanSubQuery = "qmodel.subquery"
)

// Attribute keys.
const (
	AttrChain       = "qmodel.chain"
	AttrModel       = "qmodel.model"
	AttrQueryID     = "qmodel.query_id"
	AttrShape       = "qmodel.shape"
	AttrOperator    = "qmodel.operator"
	AttrResultCount = "qmodel.result.count"
)

// Log field names for trace correlation.
const (
	LogFieldTraceID = "trace_id"
	LogFieldSpanID  = "span_id"
)

func ChainAttr(text string) attribute.KeyValue { return attribute.String(AttrChain, text) }

func ModelAttr(rendering string) attribute.KeyValue { return attribute.String(AttrModel, rendering) }

func QueryIDAttr(id string) attribute.KeyValue { return attribute.String(AttrQueryID, id) }

func ShapeAttr(shape string) attribute.KeyValue { return attribute.String(AttrShape, shape) }

func OperatorAttr(name string) attribute.KeyValue { return attribute.String(AttrOperator, name) }

func ResultCountAttr(n int) attribute.KeyValue { return attribute.Int(AttrResultCount, n) }
