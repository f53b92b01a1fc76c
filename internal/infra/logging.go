package infra

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// NewLogger builds a zerolog logger writing to w. Format "console" gives
// human-readable lines; anything else writes JSON. Unknown levels fall back
// to info.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// LogEvents logs pipeline progress published on the bus.
func LogEvents(bus *Bus, logger zerolog.Logger) {
	bus.Subscribe(SplitLoaded, func(e Event) {
		ev := e.(SplitLoadedEvent)
		logger.Info().
			Str("run_id", ev.RunID).
			Str("split", string(ev.Split)).
			Int("rows", ev.Rows).
			Msg("split loaded")
	})

	bus.Subscribe(FeaturesBuilt, func(e Event) {
		ev := e.(FeaturesBuiltEvent)
		logger.Info().
			Str("run_id", ev.RunID).
			Str("split", string(ev.Split)).
			Str("variant", ev.Variant).
			Int("rows", ev.Rows).
			Int("columns", ev.Columns).
			Msg("features built")
	})

	bus.Subscribe(TableWritten, func(e Event) {
		r := e.(TableWrittenEvent).Receipt
		event := logger.Info().
			Str("run_id", r.RunID).
			Str("table", r.Table).
			Str("location", r.Location).
			Str("format", r.Format).
			Int("rows", r.RowCount)
		if r.RemoteLocation != "" {
			event = event.Str("remote", r.RemoteLocation)
		}
		event.Msg("table written")
	})

	bus.Subscribe(RunCompleted, func(e Event) {
		ev := e.(RunCompletedEvent)
		logger.Info().
			Str("run_id", ev.RunID).
			Str("variant", ev.Variant).
			Dur("elapsed", ev.Elapsed).
			Int("tables", len(ev.Receipts)).
			Msg("run completed")
	})

	bus.Subscribe(RunFailed, func(e Event) {
		ev := e.(RunFailedEvent)
		logger.Error().Err(ev.Err).Str("run_id", ev.RunID).Msg("run failed")
	})
}
