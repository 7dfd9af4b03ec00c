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
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caiflower/regate/pkg/syncx"
	"github.com/caiflower/regate/pkg/tools"
)

type Appender interface {
	write(data data)
	close()
}

const gz = ".gz"

type logAppender struct {
	timeFormat        string
	isConsole         bool
	enableTrace       bool
	enableCompress    bool
	enableCleanBackup bool
	enableColor       bool
	dir               string
	fileName          string
	rollingPolicy     string
	maxTime           time.Duration
	maxSize           int64
	backupMaxCount    int
	backupMaxDiskSize int64

	bufPool      sync.Pool
	log          *log.Logger
	writeLock    sync.Locker
	compressLock sync.Locker
	logFile      *os.File
	filesize     int64
	lastTime     time.Time
	backups      []string
	backupsSize  int64
}

func newLogAppender(config *Config) (Appender, error) {
	maxSize, err := parseSize(config.MaxSize)
	if err != nil {
		return nil, err
	}
	backupMaxDisk, err := parseSize(config.BackupMaxDisk)
	if err != nil {
		return nil, err
	}

	appender := &logAppender{
		timeFormat:        config.TimeFormat,
		enableTrace:       *config.EnableTrace,
		enableCompress:    *config.Compress,
		enableCleanBackup: *config.CleanBackup,
		enableColor:       config.EnableColor,
		dir:               config.Path,
		fileName:          config.FileName,
		rollingPolicy:     config.RollingPolicy,
		maxTime:           config.MaxTime,
		maxSize:           maxSize,
		backupMaxCount:    config.BackupMaxCount,
		backupMaxDiskSize: backupMaxDisk,
		bufPool:           sync.Pool{New: func() interface{} { return new(strings.Builder) }},
		log:               new(log.Logger),
		writeLock:         syncx.NewSpinLock(),
		compressLock:      syncx.NewSpinLock(),
	}

	if appender.dir == "" {
		appender.isConsole = true
		var out io.Writer = os.Stdout
		if config.Output != nil {
			out = config.Output
		}
		appender.log.SetOutput(out)
		return appender, nil
	}

	if err = tools.Mkdir(appender.dir, 0755); err != nil {
		return nil, fmt.Errorf("[logger appender] mkdir: %w", err)
	}
	if err = appender.openFile(); err != nil {
		return nil, err
	}
	appender.loadBackups()
	go appender.compressAndClean()

	return appender, nil
}

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
}

// parseSize understands values such as 10KB, 500MB and 1GB.
func parseSize(size string) (int64, error) {
	if size == "" {
		return 0, nil
	}
	for _, u := range sizeUnits {
		if strings.HasSuffix(size, u.suffix) {
			n, err := strconv.ParseInt(strings.TrimSuffix(size, u.suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("[logger appender] invalid size %q: %w", size, err)
			}
			return n * u.factor, nil
		}
	}
	return 0, fmt.Errorf("[logger appender] unknown size unit %q", size)
}

func (appender *logAppender) filePath(name string) string {
	return filepath.Join(appender.dir, name)
}

func (appender *logAppender) openFile() error {
	path := appender.filePath(appender.fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("[logger appender] open logfile: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("[logger appender] stat logfile: %w", err)
	}
	appender.logFile = f
	appender.filesize = info.Size()
	appender.lastTime = info.ModTime()
	if appender.filesize == 0 {
		appender.lastTime = time.Now()
	}
	appender.log.SetOutput(f)
	return nil
}

func (appender *logAppender) write(d data) {
	defer onError("[logger appender]")

	buf := appender.bufPool.Get().(*strings.Builder)
	buf.Reset()
	defer appender.bufPool.Put(buf)

	level := d.level
	if appender.enableColor {
		level = colorize(level)
	}
	buf.WriteString(d.timestamp.Format(appender.timeFormat))
	buf.WriteString(" [")
	buf.WriteString(level)
	buf.WriteString("] ")
	if appender.enableTrace && d.traceID != "" {
		buf.WriteString("[")
		if appender.enableColor {
			buf.WriteString("\033[1;35m" + d.traceID + "\033[0m")
		} else {
			buf.WriteString(d.traceID)
		}
		buf.WriteString("] ")
	}
	buf.WriteString(d.position)
	buf.WriteString(" - ")
	buf.WriteString(d.content)

	appender.writeLock.Lock()
	defer appender.writeLock.Unlock()

	if appender.needRolling() {
		appender.rolling()
	}
	if err := appender.log.Output(0, buf.String()); err != nil {
		fmt.Printf("[logger appender] output err: %s\n", err)
		return
	}
	appender.filesize += int64(buf.Len() + 1)
}

func (appender *logAppender) needRolling() bool {
	if appender.isConsole || appender.logFile == nil {
		return false
	}
	expired := appender.maxTime > 0 && time.Since(appender.lastTime) > appender.maxTime
	oversize := appender.maxSize > 0 && appender.filesize > appender.maxSize
	switch appender.rollingPolicy {
	case RollingPolicyTimeAndSize:
		return expired || oversize
	case RollingPolicyTime:
		return expired
	case RollingPolicySize:
		return oversize
	default:
		return false
	}
}

// rolling renames the live file to <name>-<timestamp>[-n] and reopens it.
// Caller holds writeLock.
func (appender *logAppender) rolling() {
	if err := appender.logFile.Close(); err != nil {
		fmt.Printf("[logger appender] close logfile err: %s\n", err)
	}
	appender.logFile = nil

	appender.compressLock.Lock()
	target := appender.fileName + "-" + time.Now().Format("20060102150405")
	candidate := target
	for i := 1; appender.backupTaken(candidate); i++ {
		candidate = target + "-" + strconv.Itoa(i)
	}
	if err := os.Rename(appender.filePath(appender.fileName), appender.filePath(candidate)); err != nil {
		fmt.Printf("[logger appender] rename logfile err: %s\n", err)
	}
	appender.loadBackups()
	appender.compressLock.Unlock()

	if err := appender.openFile(); err != nil {
		fmt.Printf("[logger appender] %s\n", err)
		return
	}
	go appender.compressAndClean()
}

func (appender *logAppender) backupTaken(name string) bool {
	return tools.StringSliceContains(appender.backups, name) || tools.StringSliceContains(appender.backups, name+gz)
}

// loadBackups lists rotated files oldest first. Caller holds compressLock or is
// still constructing the appender.
func (appender *logAppender) loadBackups() {
	entries, err := os.ReadDir(appender.dir)
	if err != nil {
		fmt.Printf("[logger appender] read dir err: %s\n", err)
		return
	}
	appender.backups = appender.backups[:0]
	appender.backupsSize = 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == appender.fileName || !strings.HasPrefix(name, appender.fileName+"-") {
			continue
		}
		appender.backups = append(appender.backups, name)
		if info, err := e.Info(); err == nil {
			appender.backupsSize += info.Size()
		}
	}
	sort.Slice(appender.backups, func(i, j int) bool {
		return backupKey(appender.backups[i], appender.fileName) < backupKey(appender.backups[j], appender.fileName)
	})
}

// backupKey orders "<name>-<ts>", "<name>-<ts>-1", "<name>-<ts>-2" ...
func backupKey(backup, fileName string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(backup, fileName+"-"), gz)
	ts, seq, found := strings.Cut(s, "-")
	if !found {
		seq = "0"
	}
	return fmt.Sprintf("%s-%08s", ts, seq)
}

func (appender *logAppender) compressAndClean() {
	defer onError("[logger compress]")

	appender.compressLock.Lock()
	defer appender.compressLock.Unlock()

	if appender.enableCompress {
		for _, name := range appender.backups {
			if strings.HasSuffix(name, gz) {
				continue
			}
			if err := compressFile(appender.filePath(name)); err != nil {
				fmt.Printf("[logger compress] compress %s err: %s\n", name, err)
			}
		}
		appender.loadBackups()
	}

	if appender.enableCleanBackup {
		removed := 0
		var removedSize int64
		for removed < len(appender.backups) &&
			(len(appender.backups)-removed > appender.backupMaxCount || appender.backupsSize-removedSize > appender.backupMaxDiskSize) {
			path := appender.filePath(appender.backups[removed])
			size, _ := tools.FileSize(path)
			if err := os.Remove(path); err != nil {
				fmt.Printf("[logger clean] remove %s err: %s\n", path, err)
			}
			removedSize += size
			removed++
		}
		if removed > 0 {
			appender.loadBackups()
		}
	}
}

func compressFile(path string) error {
	from, err := os.Open(path)
	if err != nil {
		return err
	}
	defer from.Close()

	to, err := os.Create(path + gz)
	if err != nil {
		return err
	}
	defer to.Close()

	zw := gzip.NewWriter(to)
	if _, err = io.Copy(zw, from); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func (appender *logAppender) close() {
	appender.writeLock.Lock()
	defer appender.writeLock.Unlock()

	if appender.logFile != nil {
		if err := appender.logFile.Sync(); err != nil {
			fmt.Printf("[logger close] sync log file err: %s\n", err)
		}
		if err := appender.logFile.Close(); err != nil {
			fmt.Printf("[logger close] close logfile err: %s\n", err)
		}
		appender.logFile = nil
	}
}

// 拦截panic
func onError(txt string) {
	if r := recover(); r != nil {
		fmt.Printf("%s [ERROR] - Got a runtime error %s. %v\n%s", time.Now().Format(_timeFormat), txt, r, debug.Stack())
	}
}
