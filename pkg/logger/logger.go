package logger

import "sync"

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var (
	singleton   *Logger
	singletonMu sync.RWMutex
)

func getSingleton() *Logger {
	singletonMu.RLock()
	defer singletonMu.RUnlock()
	return singleton
}

// Init initializes the global logger with one or more logging backends.
// Calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = &Logger{
		instances: instances,
	}
}

// Attach adds a backend to the global logger until the returned function is
// called. Backends already configured keep receiving every call.
func Attach(instance LoggerInstance) (detach func()) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	var current []LoggerInstance
	if singleton != nil {
		current = singleton.instances
	}
	instances := make([]LoggerInstance, 0, len(current)+1)
	instances = append(instances, current...)
	instances = append(instances, instance)
	singleton = &Logger{instances: instances}

	var once sync.Once
	return func() {
		once.Do(func() {
			singletonMu.Lock()
			defer singletonMu.Unlock()
			if singleton == nil {
				return
			}
			kept := make([]LoggerInstance, 0, len(singleton.instances))
			for _, i := range singleton.instances {
				if i != instance {
					kept = append(kept, i)
				}
			}
			singleton = &Logger{instances: kept}
		})
	}
}

func dispatch(fn func(LoggerInstance)) {
	logger := getSingleton()
	if logger == nil {
		return
	}
	for _, instance := range logger.instances {
		fn(instance)
	}
}

// Log writes a message at the default log level to all configured backends.
func Log(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Log(message, keyvals...) })
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Info(message, keyvals...) })
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Warn(message, keyvals...) })
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Error(message, keyvals...) })
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Debug(message, keyvals...) })
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	dispatch(func(i LoggerInstance) { i.Fatal(message, keyvals...) })
}

// DataQualityMessage is the message every data-quality event is logged with.
// Backends and tests match on it to tell these events apart from ordinary warnings.
const DataQualityMessage = "data quality"

// DataQuality records a recoverable problem in the input data, such as an edge
// whose endpoint carries no universe. The kind names the problem; keyvals
// identify the offending record.
func DataQuality(component string, kind string, keyvals ...any) {
	kv := make([]any, 0, len(keyvals)+4)
	kv = append(kv, "component", component, "kind", kind)
	kv = append(kv, keyvals...)
	Warn(DataQualityMessage, kv...)
}
