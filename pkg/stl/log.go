package stl

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "stl: ", log.LstdFlags)

// SetLogger replaces the logger used for non-fatal diagnostics. Nil
// restores the default stderr logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(os.Stderr, "stl: ", log.LstdFlags)
	}
	logger = l
}
