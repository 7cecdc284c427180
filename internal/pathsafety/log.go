package pathsafety

import (
	"log"
	"os"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// pathLogger mirrors the teacher's BD_DEBUG/BD_VERBOSE-gated stderr
// convention (cmd/bd/main.go) but additionally persists every allow/deny
// decision to a rotating file, since spec.md §4.A requires "rejections
// ... are logged at WARN ... successful checks log at DEBUG" independent
// of whether the invoking CLI session has debug output enabled.
type pathLogger struct {
	file    *log.Logger
	debug   bool
	verbose bool
}

var (
	loggerOnce sync.Once
	logger     *pathLogger
)

// Logger returns the package-level logger, initializing it on first use.
func Logger() *pathLogger {
	loggerOnce.Do(func() {
		logger = &pathLogger{
			debug:   os.Getenv("BD_DEBUG") != "",
			verbose: os.Getenv("BD_VERBOSE") != "",
		}
		out := &lumberjack.Logger{
			Filename:   logPath(),
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			Compress:   false,
		}
		logger.file = log.New(out, "", log.LstdFlags|log.Lmicroseconds)
	})
	return logger
}

func logPath() string {
	if dir := os.Getenv("BEADS_DIR"); dir != "" {
		return dir + string(os.PathSeparator) + "bd.log"
	}
	return ".beads/bd.log"
}

func (l *pathLogger) Warnf(format string, args ...interface{}) {
	l.file.Printf("WARN "+format, args...)
	if l.debug || l.verbose {
		log.Printf("Warning: "+format, args...)
	}
}

func (l *pathLogger) Debugf(format string, args ...interface{}) {
	l.file.Printf("DEBUG "+format, args...)
	if l.debug {
		log.Printf("Debug: "+format, args...)
	}
}
