package errors

import (
	"fmt"
)

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// RootUnavailable is returned when the source or replica root can't be
// listed. It aborts the whole pass.
type RootUnavailable struct {
	Path string
	Err  error
}

func (err RootUnavailable) Error() string {
	return fmt.Sprintf("root %q is unavailable: %s", err.Path, err.Err)
}

func (err RootUnavailable) Unwrap() error {
	return err.Err
}

// FileReadError is returned when a file disappears or can't be read while
// its contents are being compared.
type FileReadError struct {
	Path string
	Err  error
}

func (err FileReadError) Error() string {
	return fmt.Sprintf("read %q: %s", err.Path, err.Err)
}

func (err FileReadError) Unwrap() error {
	return err.Err
}

// FileWriteError is returned when copying to or removing from the replica
// fails.
type FileWriteError struct {
	Path string
	Err  error
}

func (err FileWriteError) Error() string {
	return fmt.Sprintf("write %q: %s", err.Path, err.Err)
}

func (err FileWriteError) Unwrap() error {
	return err.Err
}

// DirectoryCreateError is returned when a replica subdirectory can't be
// created.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (err DirectoryCreateError) Error() string {
	return fmt.Sprintf("create directory %q: %s", err.Path, err.Err)
}

func (err DirectoryCreateError) Unwrap() error {
	return err.Err
}
