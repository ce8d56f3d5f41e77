package sync

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Mocked out for unit testing.
var clock = clockwork.NewRealClock()

// Mirror describes a replica tree that should be kept identical to a source
// tree.
type Mirror struct {
	// Source is the authoritative tree. It's only read from.
	Source string

	// Replica is the tree that's made to match Source. Any file in it may be
	// overwritten or removed.
	Replica string

	// Ignore lists paths that are left alone in both trees.
	Ignore *IgnoreList

	// Sink receives the events of each pass. If nil, events are discarded.
	Sink EventSink
}

// Synchronize runs a single pass that mirrors `source` onto `replica`.
// Both roots must already exist.
func Synchronize(source, replica string, sink EventSink) (Result, error) {
	return Mirror{Source: source, Replica: replica, Sink: sink}.Synchronize()
}

// Synchronize runs a single pass. It returns an error only if one of the
// roots couldn't be scanned, in which case nothing was modified. Failures on
// individual files are reported in the Result and through the sink.
func (m Mirror) Synchronize() (Result, error) {
	p := &pass{
		Mirror: m,
		result: Result{Started: clock.Now(), Failed: map[string]error{}},
	}
	if p.Sink == nil {
		p.Sink = Discard
	}

	p.emit(Event{Type: PassStarted})

	// Symlinks and other special files in the source aren't mirrored.
	sourceFiles, _, err := p.scan(m.Source)
	if err != nil {
		return p.abort(errors.WithContext(err, "scan source"))
	}

	replicaFiles, replicaOthers, err := p.scan(m.Replica)
	if err != nil {
		return p.abort(errors.WithContext(err, "scan replica"))
	}

	// Create and update everything before deleting anything.
	for _, path := range sorted(sourceFiles) {
		p.mirrorFile(path, replicaFiles.Contains(path))
	}

	// Replica symlinks are removed too, even where the source has a regular
	// file, since copying replaces the link rather than writing through it.
	stale := replicaFiles.Union(replicaOthers).Difference(sourceFiles)
	for _, path := range sorted(stale) {
		p.removeFile(path)
	}

	p.result.Finished = clock.Now()
	p.emit(Event{Type: PassCompleted})
	return p.result, nil
}

// pass holds the state of a single call to Synchronize.
type pass struct {
	Mirror
	result Result
}

func (p *pass) scan(root string) (files, others mapset.Set[string], err error) {
	filePaths, otherPaths, err := scanTree(root, p.Ignore)
	if err != nil {
		return nil, nil, err
	}
	return mapset.NewThreadUnsafeSet(filePaths...), mapset.NewThreadUnsafeSet(otherPaths...), nil
}

func (p *pass) abort(err error) (Result, error) {
	p.result.Finished = clock.Now()
	p.emit(Event{Type: PassAborted, Reason: err.Error()})
	return p.result, err
}

// mirrorFile creates or updates the replica copy of the file at `path`.
func (p *pass) mirrorFile(path string, inReplica bool) {
	src := absolutePath(p.Source, path)
	dst := absolutePath(p.Replica, path)

	if !inReplica {
		n, err := p.copy(path, src, dst)
		if err != nil {
			p.fail(path, errors.WithContext(err, "create"))
			return
		}

		p.result.BytesCopied += n
		p.result.Created = append(p.result.Created, path)
		p.emit(Event{Type: FileCreated, Path: path})
		return
	}

	// If either file can't be read, leave the replica alone. The next pass
	// will compare them again.
	equal, err := filesEqual(src, dst)
	if err != nil {
		p.fail(path, errors.WithContext(err, "compare"))
		return
	}

	if equal {
		return
	}

	n, err := p.copy(path, src, dst)
	if err != nil {
		p.fail(path, errors.WithContext(err, "update"))
		return
	}

	p.result.BytesCopied += n
	p.result.Updated = append(p.result.Updated, path)
	p.emit(Event{Type: FileUpdated, Path: path})
}

func (p *pass) copy(path, src, dst string) (int64, error) {
	if err := ensureParents(p.Replica, path); err != nil {
		return 0, err
	}
	return copyFile(src, dst)
}

func (p *pass) removeFile(path string) {
	if err := removeFile(absolutePath(p.Replica, path)); err != nil {
		p.fail(path, errors.WithContext(err, "delete"))
		return
	}

	p.result.Deleted = append(p.result.Deleted, path)
	p.emit(Event{Type: FileDeleted, Path: path})
}

func (p *pass) fail(path string, err error) {
	log.WithError(err).WithField("path", path).Debug("Failed to synchronize file")
	p.result.Failed[path] = err
	p.emit(Event{Type: FileActionFailed, Path: path, Reason: err.Error()})
}

func (p *pass) emit(e Event) {
	e.Time = clock.Now()
	p.Sink.Emit(e)
}

func sorted(paths mapset.Set[string]) []string {
	slc := paths.ToSlice()
	sort.Strings(slc)
	return slc
}
