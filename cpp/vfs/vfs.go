// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vfs defines the path-resolution collaborator used by #include and
// ships a default OS-backed implementation. The interface shape and the
// default implementation's Abs/Exists/Open logic are modeled on
// flosch-pongo2's virtfs.go (LocalFilesystemLoader / SandboxedFilesystemLoader).
package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/EngFlow/cpp/internal/lexer"
)

// VirtualFileSystem resolves a directory+name pair to a VirtualFile.
type VirtualFileSystem interface {
	GetFile(dir, name string) (VirtualFile, error)
}

// VirtualFile is a single resolved filesystem entry.
type VirtualFile interface {
	IsFile() bool
	Path() string
	Name() string
	Parent() (VirtualFile, bool)
	Child(name string) (VirtualFile, error)
	// OpenAsSource opens the file and wraps it in a LexerSource ready to be
	// pushed onto the preprocessor's source stack.
	OpenAsSource() (*lexer.LexerSource, error)
}

// osFile is the default VirtualFile, a thin wrapper over a real path.
type osFile struct {
	fs   *OSFileSystem
	path string
}

func (f *osFile) IsFile() bool {
	fi, err := os.Stat(f.path)
	return err == nil && !fi.IsDir()
}

func (f *osFile) Path() string { return f.path }
func (f *osFile) Name() string { return filepath.Base(f.path) }

func (f *osFile) Parent() (VirtualFile, bool) {
	dir := filepath.Dir(f.path)
	if dir == f.path {
		return nil, false
	}
	return &osFile{fs: f.fs, path: dir}, true
}

func (f *osFile) Child(name string) (VirtualFile, error) {
	return f.fs.GetFile(f.path, name)
}

func (f *osFile) OpenAsSource() (*lexer.LexerSource, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	return lexer.NewSource(f.path, file), nil
}

// OSFileSystem is the default VirtualFileSystem, resolving paths against the
// real filesystem. When Root is non-empty every resolved path is required to
// stay within it, mirroring pongo2's SandboxedFilesystemLoader.
type OSFileSystem struct {
	// Root, if non-empty, is the sandbox boundary: GetFile refuses to resolve
	// any path that escapes it.
	Root string
}

// NewOSFileSystem returns an unsandboxed filesystem rooted at the process's
// working directory view of the filesystem.
func NewOSFileSystem() *OSFileSystem { return &OSFileSystem{} }

// NewSandboxedFileSystem returns a filesystem that refuses to resolve any
// path falling outside root, the same restriction pongo2's
// SandboxedFilesystemLoader applies to template includes.
func NewSandboxedFileSystem(root string) (*OSFileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &OSFileSystem{Root: abs}, nil
}

// Abs resolves name relative to dir, exactly as pongo2's
// LocalFilesystemLoader.Abs resolves a template name relative to the
// including template's directory.
func (fs *OSFileSystem) Abs(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func (fs *OSFileSystem) GetFile(dir, name string) (VirtualFile, error) {
	resolved := fs.Abs(dir, name)
	resolved = filepath.Clean(resolved)

	if fs.Root != "" {
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(fs.Root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("vfs: %q escapes sandbox root %q", resolved, fs.Root)
		}
		resolved = abs
	}

	if _, err := os.Stat(resolved); err != nil {
		return nil, err
	}
	return &osFile{fs: fs, path: resolved}, nil
}
