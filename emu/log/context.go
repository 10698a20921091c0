package log

// A LogContextAdder decorates every log entry with additional fields, such
// as the current emulated cycle.
type LogContextAdder interface {
	AddLogContext(entry *EntryZ)
}

var contexts []LogContextAdder

func AddContext(c LogContextAdder) {
	contexts = append(contexts, c)
}

func RemoveContext(c LogContextAdder) {
	for i := range contexts {
		if contexts[i] == c {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}
