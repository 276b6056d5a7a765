package logging

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// LogRotator writes an archive file per day (<prefix>_YYYY-MM-DD.log) and
// gzips the previous day's file on rotation
type LogRotator struct {
	logDir      string
	prefix      string
	useUTC      bool
	logger      *logrus.Logger
	currentFile *os.File
	currentDate string
	maxDays     int
	mutex       sync.RWMutex
	compressWg  sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewLogRotator creates a rotator writing <prefix>_<date>.log files in logDir
func NewLogRotator(logDir, prefix string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	if prefix == "" {
		return nil, fmt.Errorf("log file prefix must not be empty")
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rotator := &LogRotator{
		logDir: logDir,
		prefix: prefix,
		useUTC: useUTC,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	rotator.mutex.Lock()
	err := rotator.rotateLocked(rotator.today())
	rotator.mutex.Unlock()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return rotator, nil
}

func (r *LogRotator) now() time.Time {
	if r.useUTC {
		return time.Now().UTC()
	}
	return time.Now()
}

func (r *LogRotator) today() string {
	return r.now().Format(dateLayout)
}

func (r *LogRotator) fileName(date string) string {
	return filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", r.prefix, date))
}

// SetMaxDays sets how many days of archives are kept. Zero or less keeps
// every file.
func (r *LogRotator) SetMaxDays(days int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.maxDays = days
}

// Start applies retention, then checks for a date change every minute
// until ctx is done
func (r *LogRotator) Start(ctx context.Context) {
	r.logger.WithField("prefix", r.prefix).Debug("Starting log rotator")

	r.applyRetention()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.tick(r.today())
		}
	}
}

// tick rotates to date if needed and prunes old archives after a rotation
func (r *LogRotator) tick(date string) {
	if r.checkRotation(date) {
		r.applyRetention()
	}
}

func (r *LogRotator) applyRetention() {
	r.mutex.RLock()
	maxDays := r.maxDays
	r.mutex.RUnlock()

	if maxDays <= 0 {
		return
	}
	if err := r.CleanupOldLogs(maxDays); err != nil {
		r.logger.WithError(err).WithField("prefix", r.prefix).Warn("Failed to clean up old log files")
	}
}

// checkRotation rotates when date differs from the open file's date and
// reports whether it did
func (r *LogRotator) checkRotation(date string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile == nil || r.currentDate == date {
		return false
	}

	r.logger.WithFields(logrus.Fields{
		"prefix":   r.prefix,
		"old_date": r.currentDate,
		"new_date": date,
	}).Info("Rotating log file")

	if err := r.rotateLocked(date); err != nil {
		r.logger.WithError(err).Error("Failed to rotate log file")
		return false
	}
	return true
}

// rotateLocked opens the file for date and compresses the previous one.
// The caller holds the mutex.
func (r *LogRotator) rotateLocked(date string) error {
	if r.currentFile != nil && r.currentDate == date {
		return nil
	}

	if r.currentFile != nil {
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}
		r.currentFile = nil

		oldDate := r.currentDate
		r.compressWg.Add(1)
		go func() {
			defer r.compressWg.Done()
			r.compressLogFile(oldDate)
		}()
	}

	path := r.fileName(date)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	r.currentFile = file
	r.currentDate = date

	r.logger.WithField("file", path).Debug("Opened log file")

	return nil
}

// compressLogFile gzips <prefix>_<date>.log and removes the original
func (r *LogRotator) compressLogFile(date string) {
	logFile := r.fileName(date)
	gzPath := logFile + ".gz"

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		r.logger.WithField("file", logFile).Debug("Log file doesn't exist, skipping compression")
		return
	}

	if err := compressFile(logFile, gzPath); err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to compress log file")
		os.Remove(gzPath)
		return
	}

	if err := os.Remove(logFile); err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to remove original log file")
		return
	}

	r.logger.WithField("file", gzPath).Info("Log file compressed")
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

// Write appends p to the current file
func (r *LogRotator) Write(p []byte) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile == nil {
		return 0, fmt.Errorf("log rotator %s is closed", r.prefix)
	}
	return r.currentFile.Write(p)
}

// Close closes the current file and waits for pending compressions
func (r *LogRotator) Close() error {
	r.cancel()

	r.mutex.Lock()
	var err error
	if r.currentFile != nil {
		err = r.currentFile.Close()
		r.currentFile = nil
	}
	r.mutex.Unlock()

	r.compressWg.Wait()

	if err != nil {
		r.logger.WithError(err).Error("Failed to close current log file")
	}
	return err
}

// GetCurrentLogFile returns the current log file path
func (r *LogRotator) GetCurrentLogFile() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentDate == "" {
		return ""
	}

	return r.fileName(r.currentDate)
}

// GetLogFiles returns all files of this prefix, compressed ones included
func (r *LogRotator) GetLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.logDir, r.prefix+"_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}

	return files, nil
}

// CleanupOldLogs removes files of this prefix older than maxDays
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return fmt.Errorf("failed to get log files: %w", err)
	}

	cutoff := r.now().AddDate(0, 0, -maxDays)
	current := r.GetCurrentLogFile()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
			} else {
				removed++
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"prefix": r.prefix,
		"count":  removed,
	}).Info("Cleaned up old log files")
	return nil
}
