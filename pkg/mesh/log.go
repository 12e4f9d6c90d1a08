package mesh

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "mesh: ", log.LstdFlags)

// SetLogger replaces the logger used for non-fatal diagnostics such as
// zero-area facets or open meshes. A nil logger restores the default.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(os.Stderr, "mesh: ", log.LstdFlags)
	}
	logger = l
}
