package logger

import (
	"log"
	"os"
)

// ProgressLogger logs the main steps of a styling session.
var ProgressLogger = log.New(os.Stdout, "pagestyle.progress: ", log.LstdFlags)

// WarningLogger emits a warning for each non fatal error, like unsupported CSS
// properties or ignored declarations.
var WarningLogger = log.New(os.Stdout, "pagestyle.warning: ", log.Lmsgprefix)
