// Package model defines core types shared across the sync pipeline.
package model

import (
	"path"
	"path/filepath"
	"strings"
)

// Collection is one top-level bucket prefix and the local directories it is
// staged and processed in.
type Collection struct {
	Name          string `json:"name"`
	StagingDir    string `json:"staging_dir"`
	ProcessingDir string `json:"processing_dir"`
}

// NewCollection derives the local layout for name: the staging copy lives in
// <stagingRoot>/<name> and the processing copy in <outputRoot>/svg/<name>.
func NewCollection(name, stagingRoot, outputRoot string) Collection {
	base := path.Base(strings.TrimSuffix(name, "/"))
	return Collection{
		Name:          base,
		StagingDir:    filepath.Join(stagingRoot, base),
		ProcessingDir: filepath.Join(outputRoot, "svg", base),
	}
}

// Prefix returns the bucket prefix holding the collection's objects.
func (c Collection) Prefix() string {
	return c.Name + "/"
}

// RemoteObject is one listed object in the bucket.
type RemoteObject struct {
	Key      string `json:"key"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

// NewRemoteObject infers the file name from the last path segment of key.
func NewRemoteObject(key string, size int64) RemoteObject {
	return RemoteObject{Key: key, FileName: path.Base(key), Size: size}
}

// ProcessResult reports the outcome of one collection for the run summary.
type ProcessResult struct {
	Collection string `json:"collection"`
	IconCount  int    `json:"icon_count"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the collection-level operation failed.
func (r ProcessResult) Failed() bool {
	return r.Error != ""
}

// FailedResult builds a result carrying err as the collection error.
func FailedResult(collection string, err error) ProcessResult {
	return ProcessResult{Collection: collection, Error: err.Error()}
}
