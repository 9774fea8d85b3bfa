package lock

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Info is what a running daemon records in its lock file.
type Info struct {
	PID    int
	Socket string
	Since  time.Time
}

// HeldError is returned when another daemon holds the data directory lock.
type HeldError struct {
	Info
	Path string
}

func (e *HeldError) Error() string {
	msg := fmt.Sprintf("data directory locked by PID %d (%s)", e.PID, e.Path)
	if e.Socket != "" {
		msg += fmt.Sprintf(", serving on %s", e.Socket)
	}
	return msg
}

// Lock is an acquired flock on a lock file.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on path and records this
// process and the socket it will serve on. Parent directories are created
// as needed. Returns *HeldError if another process holds it.
func Acquire(path, socket string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, &HeldError{Info: Holder(path), Path: path}
	}

	if err := write(f, Info{PID: os.Getpid(), Socket: socket, Since: time.Now()}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return &Lock{file: f, path: path}, nil
}

func write(f *os.File, info Info) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "pid=%d\nsocket=%s\ntime=%s\n",
		info.PID, info.Socket, info.Since.UTC().Format(time.RFC3339))
	return err
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release releases the lock. Safe to call on nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove before close so a stale file never outlives the holder.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Holder reads the lock file at path. Missing or unreadable fields are left
// zero.
func Holder(path string) Info {
	var info Info
	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "socket":
			info.Socket = value
		case "time":
			info.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return info
}
