/*
Package logger provides leveled, elapsed-time-prefixed logging on top of zap.

Seven levels are recognized, from lowest to highest: Verbose, Debug, Detail,
Trace, Info, Warning and Error. Entries below the display threshold are
dropped before their arguments are formatted.

Each line starts with the milliseconds elapsed since the logger was created,
rendered with three decimals, followed by the level tag:

	[    12.481] [Info] pool started workers=4
	[    63.902] [Warning] threadpool submit rejected: pool is closed

Basic usage:

	log := logger.New(os.Stderr, logger.LevelDebug)
	log.Infof("processing %d jobs", n)
	log.Log(logger.LevelError, "job failed", zap.Error(err))

A process-wide logger is available through Default and the package-level
helpers. Replace it once during startup with SetDefault:

	logger.SetDefault(logger.New(os.Stdout, logger.LevelTrace))
	logger.Infof("ready")

Levels implement encoding.TextUnmarshaler, so they can be read directly from
YAML or JSON configuration.
*/
package logger
