package main

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Run starts f on its own goroutine. A panic inside f is logged with its
// stack and handed to onPanic, the process keeps running.
func Run(log *zap.SugaredLogger, f func(), onPanic func(any)) {
	go func() {
		defer Recover(log, onPanic)
		f()
	}()
}

func Recover(log *zap.SugaredLogger, onPanic func(any)) {
	if r := recover(); r != nil {
		HandlePanic(log, r)
		if onPanic != nil {
			onPanic(r)
		}
	}
}

func HandlePanic(log *zap.SugaredLogger, p any) {
	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	log.Errorw("goroutine panicked", "panic", fmt.Sprint(p), "stack", string(buf[:n]))
}
