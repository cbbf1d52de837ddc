package report

import (
	"github.com/rs/zerolog"
)

// LogSink turns messages and tables into structured zerolog events
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to the given logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Message implements Sink
func (l *LogSink) Message(severity Severity, message string) {
	var event *zerolog.Event
	switch severity {
	case SeverityError:
		event = l.logger.Error()
	case SeverityWarning:
		event = l.logger.Warn()
	default:
		event = l.logger.Info()
	}
	event.Str("severity", string(severity)).Msg(message)
}

// Table implements Sink. Each row becomes one event keyed by the headers.
func (l *LogSink) Table(title string, table Table) {
	if table.Len() == 0 {
		l.logger.Info().Str("table", title).Int("rows", 0).Send()
		return
	}
	for _, row := range table.Rows {
		dict := zerolog.Dict()
		for i, cell := range row {
			if i < len(table.Headers) {
				dict = dict.Str(table.Headers[i], cell)
			}
		}
		l.logger.Info().Str("table", title).Dict("row", dict).Send()
	}
}
