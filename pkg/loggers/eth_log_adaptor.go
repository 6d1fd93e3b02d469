package loggers

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slog"
)

var _ slog.Handler = (*LogrusHandler)(nil)

var levelMap = map[slog.Level]logrus.Level{
	slog.LevelDebug: logrus.DebugLevel,
	slog.LevelInfo:  logrus.InfoLevel,
	slog.LevelWarn:  logrus.WarnLevel,
	slog.LevelError: logrus.ErrorLevel,
}

var levelMapReverse = map[logrus.Level]slog.Level{
	logrus.TraceLevel: slog.LevelDebug,
	logrus.DebugLevel: slog.LevelDebug,
	logrus.InfoLevel:  slog.LevelInfo,
	logrus.WarnLevel:  slog.LevelWarn,
	logrus.ErrorLevel: slog.LevelError,
	logrus.FatalLevel: slog.LevelError,
	logrus.PanicLevel: slog.LevelError,
}

// LogrusHandler routes go-ethereum logs (rpc server) into the module loggers
type LogrusHandler struct {
	Logger *logrus.Entry
	Level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

func (h *LogrusHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

func (h *LogrusHandler) Handle(ctx context.Context, record slog.Record) error {
	level, ok := levelMap[record.Level]
	if !ok {
		level = logrus.TraceLevel
	}

	fields := make(logrus.Fields, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		fields[h.key(attr.Key)] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[h.key(attr.Key)] = attr.Value.Any()
		return true
	})

	h.Logger.
		WithContext(ctx).
		WithTime(record.Time).
		WithFields(fields).
		Log(level, record.Message)
	return nil
}

func (h *LogrusHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *LogrusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogrusHandler{
		Logger: h.Logger,
		Level:  h.Level,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		group:  h.group,
	}
}

func (h *LogrusHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &LogrusHandler{
		Logger: h.Logger,
		Level:  h.Level,
		attrs:  h.attrs,
		group:  group,
	}
}
