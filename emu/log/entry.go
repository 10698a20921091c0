package log

import (
	"fmt"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Fields logrus.Fields

// Like a logrus.Entry, but is nullable. This allows us to selectively disable
// logging while also removing all code overhead associated with it
type Entry struct {
	mod        Module
	lazyfields [8]func() Fields
}

func (entry Entry) log() *logrus.Entry {
	final := logrus.StandardLogger().WithField("_mod", modNames[entry.mod])
	for _, lf := range entry.lazyfields {
		if lf != nil {
			final = final.WithFields(logrus.Fields(lf()))
		}
	}

	var z EntryZ
	for _, c := range contexts {
		c.AddLogContext(&z)
	}
	if z.zfidx == 0 {
		return final
	}
	fields := make(logrus.Fields, z.zfidx)
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	return final.WithFields(fields)
}

func (entry Entry) WithFields(fields Fields) Entry {
	return entry.WithDelayedFields(func() Fields { return fields })
}

func (entry Entry) WithField(key string, value any) Entry {
	return entry.WithDelayedFields(func() Fields {
		return Fields{
			key: value,
		}
	})
}

func (entry Entry) WithDelayedFields(getfields func() Fields) Entry {
	for idx := range entry.lazyfields {
		if entry.lazyfields[idx] == nil {
			entry.lazyfields[idx] = getfields
			return entry
		}
	}
	return entry
}

func (entry Entry) logf(lvl Level, format string, args ...any) {
	if entry.mod.Enabled(lvl) {
		emit(lvl, entry.log(), fmt.Sprintf(format, args...))
	}
}

func (entry Entry) Debugf(format string, args ...any) { entry.logf(DebugLevel, format, args...) }
func (entry Entry) Infof(format string, args ...any)  { entry.logf(InfoLevel, format, args...) }
func (entry Entry) Warnf(format string, args ...any)  { entry.logf(WarnLevel, format, args...) }
func (entry Entry) Errorf(format string, args ...any) { entry.logf(ErrorLevel, format, args...) }
func (entry Entry) Fatalf(format string, args ...any) { entry.logf(FatalLevel, format, args...) }
