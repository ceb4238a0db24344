// Copyright 2025 Gosayram Contributors
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

package functions

import (
	"regexp"
)

// Citation types
const (
	CitationQuran  = "quran"
	CitationHadith = "hadith"
)

var (
	quranPattern  = regexp.MustCompile(`(?i)Quran\s+(\d+:\d+)`)
	hadithPattern = regexp.MustCompile(`(?i)Hadith.*?(Bukhari|Muslim|Tirmidhi|Abu Dawud|Nasa'i|Ibn Majah)`)
)

// Citation is a source reference found in a generated answer
type Citation struct {
	Type       string `json:"type"`
	Reference  string `json:"reference,omitempty"`
	Collection string `json:"collection,omitempty"`
	Text       string `json:"text"`
}

// ExtractCitations finds Quran verse and Hadith collection references in text.
// Quran references come first, each group in order of appearance.
func ExtractCitations(text string) []Citation {
	citations := []Citation{}

	for _, m := range quranPattern.FindAllStringSubmatch(text, -1) {
		citations = append(citations, Citation{Type: CitationQuran, Reference: m[1], Text: m[0]})
	}
	for _, m := range hadithPattern.FindAllStringSubmatch(text, -1) {
		citations = append(citations, Citation{Type: CitationHadith, Collection: m[1], Text: m[0]})
	}

	return citations
}
