package standalone

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/researchaccelerator-hub/odysee-scraper/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// configureLogging points the global logger at the console and the run's log file. Every
// line carries the run id and a timestamp in the report timezone. The returned func puts
// the previous logger back.
func configureLogging(console, file io.Writer, level, layout string, dates *common.DateFormatter) (func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	prevLogger := log.Logger
	prevTimeFormat := zerolog.TimeFieldFormat
	prevTimestamp := zerolog.TimestampFunc

	zerolog.TimeFieldFormat = layout
	zerolog.TimestampFunc = dates.Now

	writers := []io.Writer{file}
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out: console,
			// the field is already rendered in the report timezone
			FormatTimestamp: func(i interface{}) string {
				return fmt.Sprint(i)
			},
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	return func() {
		log.Logger = prevLogger
		zerolog.TimeFieldFormat = prevTimeFormat
		zerolog.TimestampFunc = prevTimestamp
	}, nil
}
