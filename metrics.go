package binobj

import "github.com/VictoriaMetrics/metrics"

// Engine counters. Exposed through the default VictoriaMetrics registry;
// hosts that scrape metrics call metrics.WritePrometheus themselves.
var (
	marshalTotal    = metrics.NewCounter(`binobj_marshal_total`)
	marshalErrors   = metrics.NewCounter(`binobj_marshal_errors_total`)
	marshalBytes    = metrics.NewCounter(`binobj_marshal_bytes_total`)
	unmarshalTotal  = metrics.NewCounter(`binobj_unmarshal_total`)
	unmarshalErrors = metrics.NewCounter(`binobj_unmarshal_errors_total`)
	typesResolved   = metrics.NewCounter(`binobj_types_resolved_total`)
)
