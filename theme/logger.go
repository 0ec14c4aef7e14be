package theme

import "fmt"

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {
	fmt.Println(append([]any{"[DBG] THEME " + format}, args...)...)
}

func (defLogger) Info(format string, args ...any) {
	fmt.Println(append([]any{"[INF] THEME " + format}, args...)...)
}

func (defLogger) Error(format string, args ...any) {
	fmt.Println(append([]any{"[ERR] THEME " + format}, args...)...)
}
