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

package cpp

import (
	"path/filepath"
	"strings"

	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/token"
	"github.com/EngFlow/cpp/vfs"
)

// handleInclude implements #include/#include_next/#import: resolve a
// header name and push it as a new file source. isImport additionally
// dedups by resolved path.
func (p *Preprocessor) handleInclude(isNext, isImport bool) {
	spec, quoted, ok := p.readHeaderName()
	if !ok {
		p.errorf("directive:include", "expected a header name")
		p.skipRestOfLine()
		return
	}

	vf, idx := p.resolveInclude(spec, quoted, isNext)
	if vf == nil {
		p.errorf("directive:include", "%q not found", spec)
		p.skipRestOfLine()
		return
	}

	if isImport && p.imported[vf.Path()] {
		p.skipRestOfLine()
		return
	}

	lx, err := vf.OpenAsSource()
	if err != nil {
		p.errorf("directive:include", "opening %q: %v", vf.Path(), err)
		p.skipRestOfLine()
		return
	}
	lx.SetDigraphs(p.cfg.features.Has(DIGRAPHS))

	if isImport {
		p.imported[vf.Path()] = true
	}

	newFS := source.NewLexerFileSource(p.top, true, vf.Path(), lx)
	newFS.SetFoundDirIndex(idx)
	p.skipRestOfLine()
	p.pushFileSource(newFS, flagNewFile)
}

// readHeaderName reads the "<...>" or "\"...\"" token following
// #include/#include_next/#import, putting the current file's lexer into
// header-name mode first. If neither form is present directly, the rest of
// the line is macro-expanded and re-scanned for one, supporting
// "#include MACRO_NAME".
func (p *Preprocessor) readHeaderName() (spec string, quoted, ok bool) {
	if fs := p.currentFileSource(); fs != nil {
		fs.Lexer().SetInInclude(true)
		defer fs.Lexer().SetInInclude(false)
	}

	t := p.nextRaw()
	switch t.Kind {
	case token.STRING:
		return t.Value.Str, true, true
	case token.HEADER:
		return t.Value.Str, false, true
	default:
		p.unreadRaw(t)
		return p.readMacroHeaderName()
	}
}

// readMacroHeaderName handles "#include MACRO" by macro-expanding the rest
// of the line and reassembling a "<...>" or "\"...\"" spelling from the
// resulting tokens' raw text.
func (p *Preprocessor) readMacroHeaderName() (string, bool, bool) {
	var sb strings.Builder
	for {
		t := p.nextExpanded()
		if t.Kind == token.NL || t.Kind == token.EOF {
			p.unreadRaw(t)
			break
		}
		if t.Kind != token.WHITESPACE {
			sb.WriteString(t.Text)
		}
	}
	text := sb.String()
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return text[1 : len(text)-1], true, true
	}
	if len(text) >= 2 && text[0] == '<' && text[len(text)-1] == '>' {
		return text[1 : len(text)-1], false, true
	}
	return "", false, false
}

// resolveInclude implements the search order: for a quoted
// include, the including file's own directory, then quote paths, then
// system paths; for an angled include, system paths only; framework paths
// are tried last for a "Foo/Bar.h"-shaped spec. include_next resumes the
// search just past the directory that resolved the current file.
func (p *Preprocessor) resolveInclude(spec string, quoted, isNext bool) (vfs.VirtualFile, int) {
	dirs := p.includeSearchDirs(quoted)

	start := 0
	if isNext {
		if fs := p.currentFileSource(); fs != nil {
			start = fs.FoundDirIndex() + 1
		}
	}
	for i := start; i < len(dirs); i++ {
		if vf, err := p.vfs.GetFile(dirs[i], spec); err == nil && vf.IsFile() {
			return vf, i
		}
	}

	if vf := p.resolveFramework(spec); vf != nil {
		return vf, -1
	}
	return nil, -1
}

// includeSearchDirs builds the ordered directory list, with the including
// file's directory prepended only for a quoted include.
func (p *Preprocessor) includeSearchDirs(quoted bool) []string {
	var dirs []string
	if quoted {
		if fs := p.currentFileSource(); fs != nil {
			dirs = append(dirs, filepath.Dir(fs.Path()))
		}
		dirs = append(dirs, p.cfg.quotePaths...)
	}
	dirs = append(dirs, p.cfg.systemPaths...)
	return dirs
}

// resolveFramework implements the Objective-C "Foo/Bar.h" framework form:
// split on the first '/' into a framework name and a
// relative header path, and look under "<framework>.framework/Headers/".
func (p *Preprocessor) resolveFramework(spec string) vfs.VirtualFile {
	slash := strings.IndexByte(spec, '/')
	if slash < 0 {
		return nil
	}
	framework, rest := spec[:slash], spec[slash+1:]
	sub := filepath.Join(framework+".framework", "Headers", rest)
	for _, dir := range p.cfg.frameworkPaths {
		if vf, err := p.vfs.GetFile(dir, sub); err == nil && vf.IsFile() {
			return vf
		}
	}
	return nil
}
