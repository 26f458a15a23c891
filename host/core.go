package host

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCore create a zap core writing entries to sink. A nil sink yields a no-op core.
func NewCore(sink Sink, enab zapcore.LevelEnabler) zapcore.Core {
	if sink == nil {
		return zapcore.NewNopCore()
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return &core{LevelEnabler: enab, enc: zapcore.NewConsoleEncoder(cfg), sink: sink}
}

// NewLogger create a logger on top of [NewCore].
func NewLogger(sink Sink, enab zapcore.LevelEnabler) *zap.Logger {
	return zap.New(NewCore(sink, enab))
}

type core struct {
	zapcore.LevelEnabler
	enc  zapcore.Encoder
	sink Sink
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &core{LevelEnabler: c.LevelEnabler, enc: enc, sink: c.sink}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := strings.TrimRight(buf.String(), "\n")
	buf.Free()
	c.sink.Log(levelOf(ent.Level), msg)
	return nil
}

func (c *core) Sync() error { return nil }

func levelOf(l zapcore.Level) Level {
	switch {
	case l >= zapcore.DPanicLevel:
		return LevelException
	case l >= zapcore.ErrorLevel:
		return LevelError
	case l == zapcore.WarnLevel:
		return LevelWarning
	default:
		return LevelLog
	}
}
