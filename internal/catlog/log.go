// Package catlog provides the logging facade used throughout catfs.
//
// Call sites follow the same object-plus-format convention as the
// teacher's fs.Debugf/fs.Infof/fs.Errorf: the first argument is
// whatever the log line is about (a path, a handle, a component) and
// is rendered with %v, the rest is a normal Printf format string.
// Output is routed through logrus so it can be redirected, leveled,
// and formatted the way operators expect from the rest of the stack.
package catlog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the package-level logrus instance. Tests may swap its
// output or level; production wires it up from cmd/catfs.
var Logger = logrus.StandardLogger()

func line(o interface{}, text string, args []interface{}) string {
	msg := fmt.Sprintf(text, args...)
	if o == nil {
		return msg
	}
	return fmt.Sprintf("%v: %s", o, msg)
}

// Debugf logs at debug level
func Debugf(o interface{}, text string, args ...interface{}) {
	Logger.Debug(line(o, text, args))
}

// Infof logs at info level
func Infof(o interface{}, text string, args ...interface{}) {
	Logger.Info(line(o, text, args))
}

// Errorf logs at error level
func Errorf(o interface{}, text string, args ...interface{}) {
	Logger.Error(line(o, text, args))
}

// SetLevel adjusts the verbosity of the package logger
func SetLevel(level logrus.Level) {
	Logger.SetLevel(level)
}
