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
	"fmt"

	"github.com/EngFlow/cpp/internal/source"
	"github.com/EngFlow/cpp/token"
)

type lineMarkerFlag int

const (
	flagNewFile lineMarkerFlag = iota + 1
	flagReturnToFile
)

// pushFileSource installs fs as the new stack top and, if LINEMARKERS is
// enabled, queues the entry marker ahead of its first token.
func (p *Preprocessor) pushFileSource(fs *source.LexerFileSource, flag lineMarkerFlag) {
	p.pushSource(fs)
	p.queueLineMarker(fs, flag)
}

// queueLineMarker appends a P_LINE token of the form
// `# <line> "<escaped-path>"<flags>\n`.
func (p *Preprocessor) queueLineMarker(fs *source.LexerFileSource, flag lineMarkerFlag) {
	if !p.cfg.features.Has(LINEMARKERS) {
		return
	}
	line := fs.Line()
	if line <= 0 {
		line = 1
	}
	text := fmt.Sprintf("# %d \"%s\" %d\n", line, source.EscapePath(fs.Path()), int(flag))
	p.emitQueue = append(p.emitQueue, token.NewSynthetic(token.P_LINE, text))
}
