/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	golocalv1 "github.com/caiflower/regate/pkg/golocal/v1"
	"github.com/caiflower/regate/pkg/tools"
)

const (
	_trace = iota
	_debug
	_info
	_warn
	_error
	_fatal

	TraceLevel = "TRACE"
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	WarnLevel  = "WARN"
	ErrorLevel = "ERROR"
	FatalLevel = "FATAL"

	_timeFormat = "2006-01-02 15:04:05"

	RollingPolicyTime        = "time"
	RollingPolicySize        = "size"
	RollingPolicyTimeAndSize = "timeAndSize"
	RollingPolicyClose       = "close"
)

type ILog interface {
	Trace(text string, v ...interface{})
	Debug(text string, v ...interface{})
	Info(text string, v ...interface{})
	Warn(text string, v ...interface{})
	Error(text string, v ...interface{})
	Fatal(text string, v ...interface{})
}

type Config struct {
	Level          string        `yaml:"level" default:"INFO"`
	EnableTrace    *bool         `yaml:"trace" default:"true"`           // 输出 trace id
	QueueLength    int           `yaml:"queueLength" default:"50000"`    // 缓存队列大小
	AppenderNum    int           `yaml:"appenderNum" default:"2"`        // 写日志的协程数
	TimeFormat     string        `yaml:"timeFormat" default:"2006-01-02 15:04:05"`
	Path           string        `yaml:"path"`                           // 为空时输出到控制台
	FileName       string        `yaml:"fileName" default:"regate.log"`
	RollingPolicy  string        `yaml:"rollingPolicy" default:"timeAndSize"`
	MaxSize        string        `yaml:"maxSize" default:"500MB"`        // 10KB, 1MB, 1GB
	MaxTime        time.Duration `yaml:"maxTime" default:"24h"`
	Compress       *bool         `yaml:"compress" default:"true"`        // 备份日志 gzip 压缩
	CleanBackup    *bool         `yaml:"cleanBackup" default:"true"`
	BackupMaxCount int           `yaml:"backupMaxCount" default:"10"`
	BackupMaxDisk  string        `yaml:"backupMaxDiskSize" default:"1GB"`
	EnableColor    bool          `yaml:"color"`

	// Output replaces stdout for console logging.
	Output io.Writer `yaml:"-"`
}

type data struct {
	timestamp time.Time
	traceID   string
	position  string
	level     string
	content   string
}

type LoggerHandler struct {
	lock     sync.RWMutex
	level    int
	queue    chan data
	appender Appender
	workers  sync.WaitGroup
}

var defaultLogger = mustNewLogger(&Config{})

func DefaultLogger() *LoggerHandler {
	return defaultLogger
}

// InitLogger replaces the package level logger. The previous one is closed.
func InitLogger(config *Config) error {
	lh, err := NewLogger(config)
	if err != nil {
		return err
	}
	old := defaultLogger
	defaultLogger = lh
	old.Close()
	return nil
}

func NewLogger(config *Config) (*LoggerHandler, error) {
	if err := tools.SetDefaults(config); err != nil {
		return nil, err
	}
	appender, err := newLogAppender(config)
	if err != nil {
		return nil, err
	}

	lh := &LoggerHandler{
		level:    getLevel(config.Level),
		queue:    make(chan data, config.QueueLength),
		appender: appender,
	}
	q := lh.queue
	for i := 0; i < config.AppenderNum; i++ {
		lh.workers.Add(1)
		go func() {
			defer lh.workers.Done()
			for d := range q {
				lh.appender.write(d)
			}
		}()
	}
	return lh, nil
}

func mustNewLogger(config *Config) *LoggerHandler {
	lh, err := NewLogger(config)
	if err != nil {
		panic(err)
	}
	return lh
}

// Close flushes queued entries and releases the log file. Entries logged after
// Close are dropped.
func (lh *LoggerHandler) Close() {
	lh.lock.Lock()
	if lh.queue == nil {
		lh.lock.Unlock()
		return
	}
	close(lh.queue)
	lh.queue = nil
	lh.lock.Unlock()

	lh.workers.Wait()
	lh.appender.close()
}

func Trace(text string, v ...interface{}) { defaultLogger.log(TraceLevel, text, v...) }
func Debug(text string, v ...interface{}) { defaultLogger.log(DebugLevel, text, v...) }
func Info(text string, v ...interface{})  { defaultLogger.log(InfoLevel, text, v...) }
func Warn(text string, v ...interface{})  { defaultLogger.log(WarnLevel, text, v...) }
func Error(text string, v ...interface{}) { defaultLogger.log(ErrorLevel, text, v...) }
func Fatal(text string, v ...interface{}) { defaultLogger.log(FatalLevel, text, v...) }

func (lh *LoggerHandler) Trace(text string, v ...interface{}) {
	lh.log(TraceLevel, text, v...)
}

func (lh *LoggerHandler) Debug(text string, v ...interface{}) {
	lh.log(DebugLevel, text, v...)
}

func (lh *LoggerHandler) Info(text string, v ...interface{}) {
	lh.log(InfoLevel, text, v...)
}

func (lh *LoggerHandler) Warn(text string, v ...interface{}) {
	lh.log(WarnLevel, text, v...)
}

func (lh *LoggerHandler) Error(text string, v ...interface{}) {
	lh.log(ErrorLevel, text, v...)
}

func (lh *LoggerHandler) Fatal(text string, v ...interface{}) {
	lh.log(FatalLevel, text, v...)
}

func getLevel(level string) int {
	switch level {
	case TraceLevel:
		return _trace
	case DebugLevel:
		return _debug
	case InfoLevel:
		return _info
	case WarnLevel:
		return _warn
	case ErrorLevel:
		return _error
	case FatalLevel:
		return _fatal
	default:
		return _trace
	}
}

var levelColors = map[string]string{
	TraceLevel: "\033[1;37m",
	DebugLevel: "\033[1;36m",
	InfoLevel:  "\033[1;32m",
	WarnLevel:  "\033[1;33m",
	ErrorLevel: "\033[1;31m",
	FatalLevel: "\033[1;31m",
}

func colorize(level string) string {
	if c, ok := levelColors[level]; ok {
		return c + level + "\033[0m"
	}
	return level
}

func (lh *LoggerHandler) log(level string, text string, v ...interface{}) {
	if lh.level > getLevel(level) {
		return
	}

	_, file, line, _ := runtime.Caller(2)
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			file = file[i+1:]
			break
		}
	}

	d := data{
		timestamp: time.Now(),
		level:     level,
		content:   fmt.Sprintf(text, v...),
		traceID:   golocalv1.GetTraceID(),
		position:  fmt.Sprintf("%s:%d", file, line),
	}

	lh.lock.RLock()
	defer lh.lock.RUnlock()
	if lh.queue != nil {
		lh.queue <- d
	}
}
