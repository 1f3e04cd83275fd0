package fileio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edumerge/mail-merge/types"
)

// ReadFile reads path, giving up with an IOError once timeout expires or ctx is done.
// A zero timeout only honours ctx. Pipes and other pollable files are opened without
// blocking and read under a deadline, so an abandoned read leaves nothing running.
func ReadFile(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, types.NewIOError("read", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, types.NewIOError("read", path, err)
	}
	defer file.Close()

	if deadline, ok := ctx.Deadline(); ok {
		file.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		file.SetReadDeadline(time.Now())
	})
	defer stop()

	content, err := io.ReadAll(file)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, types.NewIOError("read", path, contextError(ctx))
		}
		return nil, types.NewIOError("read", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewIOError("read", path, err)
	}
	return content, nil
}

// WriteFile writes content to path, creating parent folders as needed. The content goes
// to a temporary file in the same folder that only replaces path if ctx is still live
// once it is complete, so a timed out write never leaves a file behind.
func WriteFile(ctx context.Context, path string, content []byte, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return types.NewIOError("write", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return types.NewIOError("write", path, err)
	}
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return types.NewIOError("write", path, err)
	}
	tempPath := tempFile.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		return types.NewIOError("write", path, err)
	}
	if err := tempFile.Close(); err != nil {
		return types.NewIOError("write", path, err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return types.NewIOError("write", path, err)
	}

	if err := ctx.Err(); err != nil {
		return types.NewIOError("write", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return types.NewIOError("write", path, err)
	}
	committed = true
	return nil
}

// Exists reports whether something is already stored at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.DeadlineExceeded
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
