package logger

import (
	"sync"
	"time"
)

var progress struct {
	sync.Mutex
	task    string
	started time.Time
}

// StartProgress announces a long-running task
func StartProgress(task string) {
	progress.Lock()
	progress.task, progress.started = task, time.Now()
	progress.Unlock()

	WithField("task", task).Info("started")
}

// UpdateProgress reports a step of the current task
func UpdateProgress(step string) {
	progress.Lock()
	task := progress.task
	progress.Unlock()

	WithFields(map[string]interface{}{"task": task, "step": step}).Debug("progress")
}

// EndProgress reports the outcome of the current task
func EndProgress(success bool) {
	progress.Lock()
	task, elapsed := progress.task, time.Since(progress.started)
	progress.task = ""
	progress.Unlock()

	l := WithFields(map[string]interface{}{"task": task, "elapsed": elapsed.Round(time.Millisecond).String()})
	if success {
		l.Info("completed")
		return
	}
	l.Warn("failed")
}
