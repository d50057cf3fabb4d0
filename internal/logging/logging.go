// Package logging provides structured, component-scoped logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes level-filtered log lines with key=value fields.
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a logger writing to stderr at Info level.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a logger tagged with the given component name.
// The output writer and mutex are shared with the parent.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum level emitted.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput redirects log output (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Engine event helpers ---

// StepTransition logs a step status change.
func (l *Logger) StepTransition(taskID, stepID, from, to, detail string) {
	fields := map[string]interface{}{
		"task": taskID,
		"step": stepID,
		"from": from,
		"to":   to,
	}
	if detail != "" {
		fields["detail"] = detail
	}
	l.Info("step_transition", fields)
}

// TaskSubmitted logs acceptance of a new task.
func (l *Logger) TaskSubmitted(taskID, mode string, stepCount int) {
	l.Info("task_submitted", map[string]interface{}{
		"task":  taskID,
		"mode":  mode,
		"steps": stepCount,
	})
}

// TaskComplete logs the terminal status of a task.
func (l *Logger) TaskComplete(taskID, status string, duration time.Duration) {
	l.Info("task_complete", map[string]interface{}{
		"task":     taskID,
		"status":   status,
		"duration": duration.String(),
	})
}

// ApprovalDecision logs how an approval request resolved.
func (l *Logger) ApprovalDecision(taskID, stepID string, approved, timedOut bool) {
	outcome := "denied"
	if approved {
		outcome = "approved"
	} else if timedOut {
		outcome = "timeout"
	}
	l.Info("approval_decision", map[string]interface{}{
		"task":    taskID,
		"step":    stepID,
		"outcome": outcome,
	})
}

// RollbackSwept logs the outcome of a rollback sweep.
func (l *Logger) RollbackSwept(taskID string, reversed, failed, irreversible int) {
	l.Info("rollback_swept", map[string]interface{}{
		"task":         taskID,
		"reversed":     reversed,
		"failed":       failed,
		"irreversible": irreversible,
	})
}
