package util

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

// passCompleted is printed by dirmirror at the end of every pass.
var passCompleted = sync.Event{Type: sync.PassCompleted}.Message()

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	// Binary is the path to the dirmirror executable under test.
	Binary string
}

// NewTestHelper creates a new TestHelper.
func NewTestHelper(binary string) (*TestHelper, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.WithContext(err, "find dirmirror binary")
	}
	return &TestHelper{Binary: path}, nil
}

// Start starts the given dirmirror command. It returns a reader for the stdout
// output, and a channel for obtaining any errors after starting the command,
// and any errors from starting the command.
func (helper *TestHelper) Start(ctx context.Context, args ...string) (
	io.Reader, chan error, error) {

	cmd := exec.Command(helper.Binary, args...)

	stdoutReader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}

	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	errChan := make(chan error)
	go func() {
		waitErr := make(chan error)
		go func() {
			waitErr <- cmd.Wait()
			close(waitErr)
		}()

		defer close(errChan)
		select {
		case <-ctx.Done():
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				errChan <- errors.WithContext(err, "kill")
				return
			}
			if err := <-waitErr; err != nil {
				errChan <- fmt.Errorf("stopped uncleanly (%s): stderr: %s", err, stderr)
			}
		case err := <-waitErr:
			errChan <- fmt.Errorf("crashed (%v): stderr: %s", err, stderr)
		}
	}()
	return stdoutReader, errChan, nil
}

// Run runs the given dirmirror command, and returns its combined output.
func (helper *TestHelper) Run(ctx context.Context, command ...string) ([]byte, error) {
	return exec.CommandContext(ctx, helper.Binary, command...).CombinedOutput()
}

// Mirror runs `dirmirror run` with the given arguments, and waits until the
// first pass has completed.
func (helper *TestHelper) Mirror(ctx context.Context, args ...string) (chan error, error) {
	log.Info("Starting dirmirror run")
	stdout, cmdErr, startErr := helper.Start(ctx, append([]string{"run"}, args...)...)
	if startErr != nil {
		return nil, errors.WithContext(startErr, "start")
	}

	firstPass := make(chan struct{})
	go func() {
		// Keep reading after the first pass so that the process never blocks
		// on a full pipe.
		scanner := bufio.NewScanner(stdout)
		signalled := false
		for scanner.Scan() {
			line := scanner.Text()
			log.WithField("line", line).Debug("dirmirror output")
			if !signalled && strings.Contains(line, passCompleted) {
				close(firstPass)
				signalled = true
			}
		}
	}()

	waitCtx, cancelWait := context.WithTimeout(ctx, time.Minute)
	defer cancelWait()

	select {
	case <-firstPass:
		return cmdErr, nil
	case err := <-cmdErr:
		return nil, errors.WithContext(err, "run")
	case <-waitCtx.Done():
		return nil, errors.New("timed out waiting for the first pass")
	}
}

// WaitUntilSynced blocks until the replica holds exactly the files in the
// source, with the same contents.
func (helper *TestHelper) WaitUntilSynced(ctx context.Context, source, replica string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastDiff string
	for {
		diff, err := Diff(source, replica)
		if err != nil {
			return errors.WithContext(err, "diff")
		}
		if diff == "" {
			return nil
		}

		if diff != lastDiff {
			log.WithField("diff", diff).Debug("Waiting for replica to converge")
			lastDiff = diff
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("replica never converged: %s", diff)
		case <-ticker.C:
		}
	}
}

// Diff returns a description of how the replica differs from the source, or
// an empty string if they match.
func Diff(source, replica string) (string, error) {
	sourceFiles, err := sync.Scan(source, nil)
	if err != nil {
		return "", err
	}

	replicaFiles, err := sync.Scan(replica, nil)
	if err != nil {
		return "", err
	}

	sourceSet := mapset.NewThreadUnsafeSet(sourceFiles...)
	replicaSet := mapset.NewThreadUnsafeSet(replicaFiles...)

	var diffs []string
	for _, path := range sourceFiles {
		if !replicaSet.Contains(path) {
			diffs = append(diffs, "missing "+path)
			continue
		}

		equal, err := sync.FilesEqual(
			filepath.Join(source, filepath.FromSlash(path)),
			filepath.Join(replica, filepath.FromSlash(path)))
		if err != nil {
			return "", errors.WithContext(err, "compare")
		}
		if !equal {
			diffs = append(diffs, "changed "+path)
		}
	}

	extra := replicaSet.Difference(sourceSet).ToSlice()
	sort.Strings(extra)
	for _, path := range extra {
		diffs = append(diffs, "extra "+path)
	}
	return strings.Join(diffs, ", "), nil
}
