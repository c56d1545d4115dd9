package triage

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestSession(t *testing.T, cfg SessionConfig, opts ...QueueOption) (*Session, *Queue) {
	t.Helper()
	q := NewQueue(nil, opts...)
	s := NewSession(q, cfg, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = s.Close(ctx)
	})
	return s, q
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		writeFile(t, filepath.Join(dir, name), "img:"+name)
	}
}

func mustLoad(t *testing.T, s *Session, dir string) LoadResult {
	t.Helper()
	res, err := s.LoadFolder(dir)
	if err != nil {
		t.Fatalf("load %s: %v", dir, err)
	}
	return res
}

func mustCommit(t *testing.T, s *Session, action Action) CommitResult {
	t.Helper()
	res, err := s.Commit(action)
	if err != nil {
		t.Fatalf("commit %s: %v", action, err)
	}
	return res
}

func currentName(t *testing.T, s *Session) string {
	t.Helper()
	entry, ok := s.Current()
	if !ok {
		return ""
	}
	return entry.Name
}

// waitIdle blocks until the worker has executed every queued job.
func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for q.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("queue still has %d jobs", q.Pending())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// finish closes the session, which drains the queue and folds every event
// back into it.
func finish(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// jobGate runs jobs on the real filesystem but holds the ones matching hold
// until the gate opens.
type jobGate struct {
	hold    func(CommitJob) bool
	held    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newJobGate(hold func(CommitJob) bool) *jobGate {
	return &jobGate{hold: hold, held: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *jobGate) run(job CommitJob) error {
	if g.hold(job) {
		g.held <- struct{}{}
		<-g.release
	}
	return RunJob(job)
}

func (g *jobGate) open() { g.once.Do(func() { close(g.release) }) }

func (g *jobGate) waitHeld(t *testing.T) {
	t.Helper()
	select {
	case <-g.held:
	case <-time.After(5 * time.Second):
		t.Fatal("no job reached the gate")
	}
}

func TestLoadFolderSortsCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "b.JPG", "A.png", "c.jpeg", "Z.webp", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "Keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeImages(t, dir, filepath.Join("Keep", "old.jpg"))

	s, _ := newTestSession(t, SessionConfig{})
	res := mustLoad(t, s, dir)
	if res.Outcome != OutcomeReady || res.Pending != 4 || res.Total != 4 {
		t.Fatalf("load result = %+v", res)
	}

	want := []string{"A.png", "b.JPG", "c.jpeg", "Z.webp"}
	for i, entry := range s.entries {
		if entry.Name != want[i] {
			t.Fatalf("entries[%d] = %q, want %q", i, entry.Name, want[i])
		}
		if entry.Path != filepath.Join(res.Folder, want[i]) || entry.State != Pending {
			t.Fatalf("entries[%d] = %+v", i, entry)
		}
	}
}

func TestLoadFolderSkipsAlreadyTriaged(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "A.jpg", "B.jpg", "C.jpg")
	writeFile(t, filepath.Join(dir, DefaultLogName), `{"processed_files": ["A.jpg", "B.jpg"]}`)

	s, _ := newTestSession(t, SessionConfig{})
	res := mustLoad(t, s, dir)
	if res.Pending != 1 || res.Total != 3 {
		t.Fatalf("load result = %+v", res)
	}
	if got := currentName(t, s); got != "C.jpg" {
		t.Fatalf("current = %q, want C.jpg", got)
	}
}

func TestLoadFolderCountsMovedFilesInTotal(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "c.jpg")
	writeFile(t, filepath.Join(dir, DefaultLogName), `{"processed_files": ["a.jpg", "b.jpg"]}`)

	s, _ := newTestSession(t, SessionConfig{})
	res := mustLoad(t, s, dir)
	if res.Total != 3 || res.Pending != 1 {
		t.Fatalf("load result = %+v", res)
	}
	snap := s.Snapshot()
	if snap.Triaged != 2 || snap.FolderTotal != 3 {
		t.Fatalf("lifetime progress = %d/%d, want 2/3", snap.Triaged, snap.FolderTotal)
	}
}

func TestLoadFolderOutcomes(t *testing.T) {
	empty := t.TempDir()
	writeFile(t, filepath.Join(empty, "readme.txt"), "not an image")

	done := t.TempDir()
	writeImages(t, done, "a.jpg")
	writeFile(t, filepath.Join(done, DefaultLogName), `{"processed_files": ["a.jpg"]}`)

	cases := []struct {
		name string
		dir  string
		want LoadOutcome
	}{
		{"no images", empty, OutcomeNoImages},
		{"all triaged", done, OutcomeNothingToDo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSession(t, SessionConfig{})
			res := mustLoad(t, s, tc.dir)
			if res.Outcome != tc.want {
				t.Fatalf("outcome = %v, want %v", res.Outcome, tc.want)
			}
			if _, ok := s.Current(); ok {
				t.Fatal("current should report completion")
			}
			if !s.Snapshot().Complete {
				t.Fatal("snapshot should report completion")
			}
		})
	}
}

func TestLoadFolderUnreadableKeepsSession(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	s, _ := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	mustCommit(t, s, Keep)

	if _, err := s.LoadFolder(filepath.Join(dir, "does-not-exist")); err == nil {
		t.Fatal("expected error for a missing folder")
	}
	if s.Folder() != dir && s.Folder() != mustAbs(t, dir) {
		t.Fatalf("folder changed to %q", s.Folder())
	}
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("current = %q, want b.jpg", got)
	}
}

func TestCommitUndoScenario(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg", "c.jpg")

	s, q := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)

	if r := mustCommit(t, s, Keep); r != CommitQueued {
		t.Fatalf("commit a = %v", r)
	}
	mustCommit(t, s, Discard)
	if got := currentName(t, s); got != "c.jpg" {
		t.Fatalf("current = %q, want c.jpg", got)
	}

	undone, err := s.Undo()
	if err != nil || !undone {
		t.Fatalf("undo = %v, %v", undone, err)
	}
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("current after undo = %q, want b.jpg", got)
	}
	if entry, _ := s.Current(); entry.State != Undone {
		t.Fatalf("state = %v, want undone", entry.State)
	}

	durable := LoadSessionLog(dir, "", nil)
	if durable.Contains("b.jpg") || !durable.Contains("a.jpg") {
		t.Fatalf("durable log = %v", durable.Names())
	}

	waitIdle(t, q)
	if !fileExists(filepath.Join(dir, "Keep", "a.jpg")) {
		t.Fatal("a.jpg not moved into Keep")
	}
	if fileExists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("a.jpg still in source folder")
	}
	if !fileExists(filepath.Join(dir, "b.jpg")) || fileExists(filepath.Join(dir, "Discard", "b.jpg")) {
		t.Fatal("b.jpg was not moved back by undo")
	}
	if snap := s.Snapshot(); !strings.Contains(snap.LastAction, "b.jpg") {
		t.Fatalf("last action = %q", snap.LastAction)
	}
}

func TestCommitThenUndoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	s, _ := newTestSession(t, SessionConfig{DrainOnExit: true})
	mustLoad(t, s, dir)
	mustCommit(t, s, Keep)

	before := s.cursor
	mustCommit(t, s, Keep)
	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if s.cursor != before {
		t.Fatalf("cursor = %d, want %d", s.cursor, before)
	}

	finish(t, s)
	if LoadSessionLog(dir, "", nil).Contains("b.jpg") {
		t.Fatal("b.jpg should be gone from the durable log")
	}
	if !fileExists(filepath.Join(dir, "b.jpg")) {
		t.Fatal("b.jpg should be back in the source folder")
	}
}

func TestUndoWithEmptyHistoryIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	s, q := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	undone, err := s.Undo()
	if err != nil || undone {
		t.Fatalf("undo = %v, %v", undone, err)
	}
	if q.Pending() != 0 {
		t.Fatal("undo with no history must not queue work")
	}
}

func TestHistoryTracksCursor(t *testing.T) {
	dir := t.TempDir()
	names := make([]string, 12)
	for i := range names {
		names[i] = string(rune('a'+i)) + ".jpg"
	}
	writeImages(t, dir, names...)

	s, _ := newTestSession(t, SessionConfig{DrainOnExit: true})
	mustLoad(t, s, dir)

	rng := rand.New(rand.NewSource(7))
	commits, undos := 0, 0
	for i := 0; i < 60; i++ {
		if rng.Intn(3) == 0 {
			if ok, _ := s.Undo(); ok {
				undos++
			}
		} else if r := mustCommit(t, s, Actions[rng.Intn(len(Actions))]); r == CommitQueued {
			commits++
		}
		if len(s.history) != commits-undos {
			t.Fatalf("step %d: history = %d, want %d", i, len(s.history), commits-undos)
		}
		if s.cursor != len(s.history) {
			t.Fatalf("step %d: cursor = %d, history = %d", i, s.cursor, len(s.history))
		}
		if s.cursor < 0 || s.cursor > len(s.entries) {
			t.Fatalf("step %d: cursor %d out of range", i, s.cursor)
		}
	}

	finish(t, s)
	if got := s.Snapshot().LastError; got != "" {
		t.Fatalf("unexpected error status: %s", got)
	}
	durable := LoadSessionLog(dir, "", nil)
	if durable.Len() != len(s.history) {
		t.Fatalf("durable log has %d names, history %d", durable.Len(), len(s.history))
	}
	for _, rec := range s.history {
		if !fileExists(rec.Dest) {
			t.Fatalf("%s missing from %s", rec.Name, rec.Dest)
		}
	}
}

func TestCurrentIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	s, _ := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	first, _ := s.Current()
	for i := 0; i < 5; i++ {
		if again, _ := s.Current(); again != first {
			t.Fatalf("current changed: %+v vs %+v", again, first)
		}
	}
}

func TestCommitDropsVanishedSource(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg", "c.jpg")

	s, q := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	mustCommit(t, s, Keep)

	if err := os.Remove(filepath.Join(dir, "b.jpg")); err != nil {
		t.Fatal(err)
	}
	if r := mustCommit(t, s, Discard); r != CommitDropped {
		t.Fatalf("commit = %v, want CommitDropped", r)
	}
	if got := currentName(t, s); got != "c.jpg" {
		t.Fatalf("current = %q, want c.jpg", got)
	}
	snap := s.Snapshot()
	if snap.SessionDone != 1 || snap.SessionTotal != 2 {
		t.Fatalf("progress = %d/%d, want 1/2", snap.SessionDone, snap.SessionTotal)
	}
	if !strings.Contains(snap.LastError, "b.jpg") {
		t.Fatalf("last error = %q", snap.LastError)
	}
	if len(s.history) != 1 {
		t.Fatalf("history = %d, want 1", len(s.history))
	}
	waitIdle(t, q)
}

func TestCommitAtEndIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	s, _ := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	mustCommit(t, s, Maybe)
	if r := mustCommit(t, s, Maybe); r != CommitNoop {
		t.Fatalf("commit past end = %v", r)
	}
	if len(s.history) != 1 {
		t.Fatalf("history = %d", len(s.history))
	}
}

func TestCopyStrategyUndoDeletesCopy(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	s, q := newTestSession(t, SessionConfig{Strategy: StrategyCopy})
	mustLoad(t, s, dir)
	mustCommit(t, s, Keep)
	waitIdle(t, q)

	kept := filepath.Join(dir, "Keep", "a.jpg")
	if !fileExists(kept) || !fileExists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("copy strategy should leave the original and create a copy")
	}

	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, q)
	if fileExists(kept) {
		t.Fatal("undo should delete the copy")
	}
	if !fileExists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("undo must not touch the original")
	}
}

func TestFailedCommitLeavesFileUntriaged(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", filepath.Join("Keep", "a.jpg"))

	s, _ := newTestSession(t, SessionConfig{DrainOnExit: true})
	mustLoad(t, s, dir)
	mustCommit(t, s, Keep)
	finish(t, s)

	snap := s.Snapshot()
	if !strings.Contains(snap.LastError, "a.jpg") {
		t.Fatalf("last error = %q", snap.LastError)
	}
	if LoadSessionLog(dir, "", nil).Contains("a.jpg") {
		t.Fatal("a failed commit must not stay in the durable log")
	}
	if readFile(t, filepath.Join(dir, "Keep", "a.jpg")) != "img:"+filepath.Join("Keep", "a.jpg") {
		t.Fatal("existing destination was overwritten")
	}

	undone, err := s.Undo()
	if err != nil || !undone {
		t.Fatalf("undo = %v, %v", undone, err)
	}
	if !fileExists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("source should still be in place")
	}
}

func TestCommitAfterCloseFails(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	s, _ := newTestSession(t, SessionConfig{})
	mustLoad(t, s, dir)
	if _, err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Commit(Keep); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("commit after close: got %v", err)
	}
	if s.cursor != 0 || len(s.history) != 0 || s.log.Contains("a.jpg") {
		t.Fatal("a rejected commit must not change session state")
	}
}

func TestFolderLockExcludesSecondSession(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	first, _ := newTestSession(t, SessionConfig{LockFolder: true})
	mustLoad(t, first, dir)

	second, _ := newTestSession(t, SessionConfig{LockFolder: true})
	if _, err := second.LoadFolder(dir); !errors.Is(err, ErrFolderLocked) {
		t.Fatalf("second load: got %v, want ErrFolderLocked", err)
	}

	if _, err := first.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	mustLoad(t, second, dir)
}

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}

func TestUndoAfterFailedCommitLeavesExistingFileAlone(t *testing.T) {
	cases := []struct {
		name         string
		strategy     Strategy
		removeSource bool
	}{
		{"copy onto existing file", StrategyCopy, false},
		{"move of vanished source", StrategyMove, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeImages(t, dir, "a.jpg")
			kept := filepath.Join(dir, "Keep", "a.jpg")
			writeFile(t, kept, "earlier photo")

			gate := newJobGate(func(job CommitJob) bool { return !job.Undo })
			s, _ := newTestSession(t, SessionConfig{Strategy: tc.strategy, DrainOnExit: true}, WithRunner(gate.run))
			t.Cleanup(gate.open)
			mustLoad(t, s, dir)

			mustCommit(t, s, Keep)
			gate.waitHeld(t)
			if tc.removeSource {
				if err := os.Remove(filepath.Join(dir, "a.jpg")); err != nil {
					t.Fatal(err)
				}
			}
			if undone, err := s.Undo(); err != nil || !undone {
				t.Fatalf("undo = %v, %v", undone, err)
			}
			gate.open()
			finish(t, s)

			if got := readFile(t, kept); got != "earlier photo" {
				t.Fatalf("Keep/a.jpg = %q, want the earlier photo untouched", got)
			}
			if !tc.removeSource && readFile(t, filepath.Join(dir, "a.jpg")) != "img:a.jpg" {
				t.Fatal("source changed")
			}
			if tc.removeSource && fileExists(filepath.Join(dir, "a.jpg")) {
				t.Fatal("undo moved an unrelated file into the source folder")
			}
			if LoadSessionLog(dir, "", nil).Contains("a.jpg") {
				t.Fatal("a.jpg should not be logged")
			}
		})
	}
}

func TestRecommitWhileUndoMovesFileBack(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	gate := newJobGate(func(job CommitJob) bool { return job.Undo })
	s, q := newTestSession(t, SessionConfig{DrainOnExit: true}, WithRunner(gate.run))
	t.Cleanup(gate.open)
	mustLoad(t, s, dir)

	mustCommit(t, s, Keep)
	waitIdle(t, q)
	if fileExists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("a.jpg should have moved into Keep")
	}

	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	gate.waitHeld(t)
	if r := mustCommit(t, s, Discard); r != CommitQueued {
		t.Fatalf("re-commit = %v, want CommitQueued", r)
	}
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("current = %q, want b.jpg", got)
	}

	gate.open()
	finish(t, s)

	if !fileExists(filepath.Join(dir, "Discard", "a.jpg")) {
		t.Fatal("a.jpg should end up in Discard")
	}
	if fileExists(filepath.Join(dir, "a.jpg")) || fileExists(filepath.Join(dir, "Keep", "a.jpg")) {
		t.Fatal("a.jpg left behind")
	}
	if !LoadSessionLog(dir, "", nil).Contains("a.jpg") {
		t.Fatal("a.jpg should be logged")
	}
	if got := s.Snapshot().LastError; got != "" {
		t.Fatalf("unexpected error status: %s", got)
	}
}

func TestCloseWithoutDrainForgetsAbandonedCommits(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg", "c.jpg")

	gate := newJobGate(func(job CommitJob) bool { return job.Name == "a.jpg" })
	s, _ := newTestSession(t, SessionConfig{}, WithRunner(gate.run))
	t.Cleanup(gate.open)
	mustLoad(t, s, dir)

	mustCommit(t, s, Keep)
	mustCommit(t, s, Keep)
	gate.waitHeld(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		gate.open()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dropped, err := s.Close(ctx)
	if err != nil || dropped != 1 {
		t.Fatalf("close = %d, %v; want 1 dropped", dropped, err)
	}

	durable := LoadSessionLog(dir, "", nil)
	if !durable.Contains("a.jpg") || durable.Contains("b.jpg") {
		t.Fatalf("durable log = %v, want only a.jpg", durable.Names())
	}
	if !fileExists(filepath.Join(dir, "Keep", "a.jpg")) || !fileExists(filepath.Join(dir, "b.jpg")) {
		t.Fatal("files not where the log says")
	}
}
