package triage

import (
	"errors"
	"fmt"
	"strings"
)

// Action is the user's disposition for one image.
type Action int

const (
	Keep Action = iota
	Discard
	Maybe
)

// Actions lists every action in display order.
var Actions = []Action{Keep, Discard, Maybe}

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	case Maybe:
		return "maybe"
	default:
		return "unknown"
	}
}

// Dir is the subfolder, under the source folder, that receives the action's files.
func (a Action) Dir() string {
	switch a {
	case Keep:
		return "Keep"
	case Discard:
		return "Discard"
	case Maybe:
		return "Maybe"
	default:
		return ""
	}
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep", "k":
		return Keep, nil
	case "discard", "d", "n":
		return Discard, nil
	case "maybe", "m":
		return Maybe, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Strategy decides how a commit places a file and therefore how undo reverses it.
type Strategy string

const (
	// StrategyMove moves the original into the action folder; undo moves it back.
	StrategyMove Strategy = "move"
	// StrategyCopy leaves the original in place; undo deletes the copy.
	StrategyCopy Strategy = "copy"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyMove, "":
		return StrategyMove, nil
	case StrategyCopy:
		return StrategyCopy, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want move or copy)", s)
	}
}

type EntryState int

const (
	Pending EntryState = iota
	Committed
	Undone
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Undone:
		return "undone"
	default:
		return "unknown"
	}
}

// ImageEntry is one image found when the folder was scanned.
type ImageEntry struct {
	Name  string
	Path  string
	State EntryState
}

// HistoryRecord remembers one commit so it can be undone.
type HistoryRecord struct {
	Name     string
	Action   Action
	Strategy Strategy
	Source   string
	Dest     string
	Cursor   int
	JobID    uint64
}

type Op int

const (
	OpMove Op = iota
	OpCopy
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpMove:
		return "move"
	case OpCopy:
		return "copy"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// CommitJob is one filesystem operation. Jobs are immutable once enqueued.
type CommitJob struct {
	ID     uint64
	Op     Op
	Name   string
	Source string
	Dest   string
	// Undo marks jobs that reverse an earlier commit.
	Undo bool
	// Reverses is the ID of the commit job an undo job reverses. The worker
	// skips the undo when that job failed, since nothing was placed.
	Reverses uint64
}

func (j CommitJob) String() string {
	if j.Op == OpRemove {
		return fmt.Sprintf("remove %s", j.Dest)
	}
	return fmt.Sprintf("%s %s -> %s", j.Op, j.Source, j.Dest)
}

// Event reports the outcome of one job, in execution order.
type Event struct {
	Job     CommitJob
	Err     error
	Pending int
	// Skipped is set for undo jobs that did not run because the commit they
	// reverse had failed.
	Skipped bool
}

type LoadOutcome int

const (
	OutcomeReady LoadOutcome = iota
	// OutcomeNothingToDo means the folder has images but every one is already triaged.
	OutcomeNothingToDo
	// OutcomeNoImages means the folder holds no supported images at all.
	OutcomeNoImages
)

func (o LoadOutcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeNothingToDo:
		return "all photos in this folder have already been sorted"
	case OutcomeNoImages:
		return "no supported images found in this folder"
	default:
		return "unknown"
	}
}

type LoadResult struct {
	Folder  string
	Pending int
	Total   int
	Outcome LoadOutcome
}

type CommitResult int

const (
	CommitNoop CommitResult = iota
	CommitQueued
	// CommitDropped means the source vanished; the entry left the list and
	// the caller should fetch Current again.
	CommitDropped
)

// Snapshot is everything a viewer needs to redraw after a state change.
type Snapshot struct {
	Folder       string
	Current      ImageEntry
	Complete     bool
	SessionDone  int
	SessionTotal int
	Triaged      int
	FolderTotal  int
	LastAction   string
	LastError    string
	PendingJobs  int
}

var (
	ErrFolderLocked      = errors.New("folder is in use by another cull session")
	ErrDestinationExists = errors.New("destination already exists")
	ErrQueueClosed       = errors.New("commit queue is closed")
)
