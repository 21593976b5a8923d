package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey         = "telemetry:span"
	maxStatementLen = 500
)

// GORMTracingPlugin returns a GORM plugin that puts a span around every
// query, create, update, delete and raw statement.
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
	system string
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	p.system = dbSystem(db.Dialector.Name())

	cb := db.Callback()
	register := []struct {
		op     string
		before func(string) error
		after  func(string) error
	}{
		{"SELECT",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, p.start("SELECT")) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, p.finish) }},
		{"INSERT",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, p.start("INSERT")) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, p.finish) }},
		{"UPDATE",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, p.start("UPDATE")) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, p.finish) }},
		{"DELETE",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, p.start("DELETE")) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, p.finish) }},
		{"RAW",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, p.start("RAW")) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, p.finish) }},
	}

	for _, r := range register {
		name := strings.ToLower(r.op)
		if err := r.before("telemetry:before_" + name); err != nil {
			return fmt.Errorf("register before_%s callback: %w", name, err)
		}
		if err := r.after("telemetry:after_" + name); err != nil {
			return fmt.Errorf("register after_%s callback: %w", name, err)
		}
	}
	return nil
}

func (p *tracingPlugin) start(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", p.system),
				attribute.String("db.sql.table", table),
				attribute.String("db.operation", operation),
			),
		)
		db.InstanceSet(spanKey, span)
	}
}

func (p *tracingPlugin) finish(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}

func dbSystem(dialect string) string {
	switch dialect {
	case "postgres":
		return "postgresql"
	case "sqlite":
		return "sqlite"
	default:
		return dialect
	}
}
