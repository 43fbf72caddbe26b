package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Loggers are usable before InitLogger runs so tests and library callers never
// hit a nil logger.
var (
	InfoLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

func InitLogger(level string) {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	// Set output untuk InfoLogger ke stdout
	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Set output untuk ErrorLogger ke stderr
	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	InfoLogger.SetLevel(lvl)
	ErrorLogger.SetLevel(logrus.WarnLevel)
	if lvl > logrus.WarnLevel {
		ErrorLogger.SetLevel(lvl)
	}
}
