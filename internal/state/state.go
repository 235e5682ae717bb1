package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const ownerSep = "::"

// FileState represents the indexed state of a single org file
type FileState struct {
	MTime int64    `json:"mtime"`
	Hash  string   `json:"hash"`
	Nodes int      `json:"nodes"`
	Todos int      `json:"todos"`
	IDs   []string `json:"ids,omitempty"`
}

// State represents the index of an org directory
type State struct {
	Files map[string]*FileState `json:"files"`
	IDMap map[string]string     `json:"id_map"` // org-id -> "path::heading"
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Files: make(map[string]*FileState),
		IDMap: make(map[string]string),
	}
}

// Load reads state from the state file
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	if state.Files == nil {
		state.Files = make(map[string]*FileState)
	}
	if state.IDMap == nil {
		state.IDMap = make(map[string]string)
	}

	return &state, nil
}

// Save writes state to the state file
func (s *State) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// ComputeHash computes SHA256 hash of a file
func ComputeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// HasChanged checks if a file has changed since it was last indexed
// Uses hybrid mtime + hash approach
func (s *State) HasChanged(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	fileState, exists := s.Files[path]
	if !exists {
		// New file
		return true, nil
	}

	// Fast path: check mtime first
	if info.ModTime().Unix() == fileState.MTime {
		return false, nil
	}

	// mtime changed, compute hash to check for actual content changes
	hash, err := ComputeHash(path)
	if err != nil {
		return false, err
	}

	return hash != fileState.Hash, nil
}

// Update records a freshly indexed file, replacing the IDs it owned before
func (s *State) Update(path string, nodes, todos int, ids map[string]string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	hash, err := ComputeHash(path)
	if err != nil {
		return err
	}

	s.dropIDs(path)

	fs := &FileState{
		MTime: info.ModTime().Unix(),
		Hash:  hash,
		Nodes: nodes,
		Todos: todos,
	}
	for id, heading := range ids {
		s.IDMap[id] = path + ownerSep + heading
		fs.IDs = append(fs.IDs, id)
	}
	s.Files[path] = fs

	return nil
}

// Remove forgets a file and the IDs it owned
func (s *State) Remove(path string) {
	s.dropIDs(path)
	delete(s.Files, path)
}

// Prune removes every tracked file not in keep and returns how many were removed
func (s *State) Prune(keep map[string]bool) int {
	removed := 0
	for path := range s.Files {
		if !keep[path] {
			s.Remove(path)
			removed++
		}
	}
	return removed
}

// Owner returns the file and heading that claimed id in the last index run
func (s *State) Owner(id string) (path, heading string, ok bool) {
	owner, found := s.IDMap[id]
	if !found {
		return "", "", false
	}
	path, heading, _ = strings.Cut(owner, ownerSep)
	return path, heading, true
}

// dropIDs forgets the IDs path owned, leaving IDs another file has claimed since
func (s *State) dropIDs(path string) {
	old, ok := s.Files[path]
	if !ok {
		return
	}
	for _, id := range old.IDs {
		if owner, _, found := s.Owner(id); found && owner == path {
			delete(s.IDMap, id)
		}
	}
}
