// Package logger builds the zerolog logger the service writes JSON lines
// with, and carries request scoped fields through a context so that lines
// logged deep inside indexing or search still name the request, field and
// document they belong to.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	Service   string
	Component string
}

// Fields are attached to every line logged with a context carrying them.
type Fields struct {
	RequestID string
	Component string
	Field     string
	DocID     string
}

type fieldsKey struct{}

// FieldsFrom returns the fields stored in ctx.
func FieldsFrom(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func with(ctx context.Context, set func(*Fields)) context.Context {
	f := FieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID tags ctx with reqID, generating one when empty.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return with(ctx, func(f *Fields) { f.RequestID = reqID })
}

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.Component = component })
}

// WithField tags ctx with the geo shape field being indexed or searched.
func WithField(ctx context.Context, field string) context.Context {
	if field == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.Field = field })
}

func WithDocID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return with(ctx, func(f *Fields) { f.DocID = id })
}

func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (f Fields) apply(c zerolog.Context) zerolog.Context {
	for _, kv := range [...][2]string{
		{"request_id", f.RequestID},
		{"component", f.Component},
		{"field", f.Field},
		{"doc_id", f.DocID},
	} {
		if kv[1] != "" {
			c = c.Str(kv[0], kv[1])
		}
	}
	return c
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level; anything it does
// not know logs at info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Build returns a JSON logger writing to out (stdout when nil). The level is
// set on the logger itself so several loggers in one process can differ.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	c := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		c = c.Str("service", cfg.Service)
	}
	if cfg.Component != "" {
		c = c.Str("component", cfg.Component)
	}
	return c.Logger()
}

// FromContext returns a child of parent carrying the fields of ctx. A nil
// parent discards.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	base := zerolog.Nop()
	if parent != nil {
		base = *parent
	}
	l := FieldsFrom(ctx).apply(base.With()).Logger()
	return &l
}
