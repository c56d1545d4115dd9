package triage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FolderStatus summarises a folder without starting a session.
type FolderStatus struct {
	Folder       string
	LogPath      string
	Images       int
	Triaged      int
	Pending      int
	PendingBytes int64
	ByAction     map[Action]int
}

// InspectFolder counts pending, triaged, and sorted images in dir.
func InspectFolder(dir, logName string, logger *slog.Logger) (FolderStatus, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return FolderStatus{}, err
	}
	names, err := scanImages(abs)
	if err != nil {
		return FolderStatus{}, err
	}
	log := LoadSessionLog(abs, logName, logger)

	st := FolderStatus{
		Folder:   abs,
		LogPath:  log.Path(),
		Images:   len(names),
		Triaged:  log.Len(),
		ByAction: make(map[Action]int, len(Actions)),
	}
	for _, name := range names {
		if log.Contains(name) {
			continue
		}
		st.Pending++
		if info, err := os.Stat(filepath.Join(abs, name)); err == nil {
			st.PendingBytes += info.Size()
		}
	}
	for _, a := range Actions {
		sorted, err := scanImages(filepath.Join(abs, a.Dir()))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return FolderStatus{}, err
		}
		st.ByAction[a] = len(sorted)
	}
	return st, nil
}
