package page2cbr

import "github.com/sirupsen/logrus"

func (arc *Archiver) logf(format string, args ...interface{}) {
	if arc.EnableLog {
		logrus.Printf(format, args...)
	}
}

func (arc *Archiver) verbosef(format string, args ...interface{}) {
	if arc.EnableVerboseLog {
		logrus.Printf(format, args...)
	}
}

func (arc *Archiver) warnf(format string, args ...interface{}) {
	if arc.EnableLog {
		logrus.Warnf(format, args...)
	}
}
