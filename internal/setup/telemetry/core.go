package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core to record error logs as OpenTelemetry spans,
// next to the spans bunotel records for queries.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a new core that forwards error logs to OpenTelemetry.
func NewCore(enab zapcore.LevelEnabler) zapcore.Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       otel.Tracer("github.com/c2tools/sanctions/logs"),
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)

	return &Core{LevelEnabler: c.LevelEnabler, tracer: c.tracer, fields: merged}
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	// Only forward Error and higher severity
	if ent.Level < zapcore.ErrorLevel {
		return nil
	}

	_, span := c.tracer.Start(context.Background(), "error."+errorCategory(ent))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("error.message", ent.Message),
		attribute.String("error.level", ent.Level.String()),
		attribute.String("error.caller", ent.Caller.String()),
		attribute.String("logger", ent.LoggerName),
	}

	// Encode fields through a map so non-string values keep their content
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range append(c.fields, fields...) {
		field.AddTo(enc)
	}
	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, stringify(value)))
	}

	span.SetAttributes(attrs...)
	return nil
}

func (c *Core) Sync() error {
	return nil
}

// errorCategory determines the error category from the logger name.
func errorCategory(ent zapcore.Entry) string {
	switch name := ent.LoggerName; {
	case strings.Contains(name, "db_"):
		return "database"
	case strings.Contains(name, "service"):
		return "service"
	case strings.Contains(name, "exporter"), strings.Contains(name, "reporter"):
		return "export"
	default:
		return "application"
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
