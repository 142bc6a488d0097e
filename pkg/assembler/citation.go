package assembler

import (
	"fmt"
	"regexp"
	"strconv"

	"ai-search-be/pkg/protocol"
)

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// RenderCitations replaces every [k] marker that has a matching source
// (1-indexed) with render's output. Markers without a source stay literal.
func RenderCitations(text string, sources []protocol.Source, render func(k int, src protocol.Source) string) string {
	return citationMarker.ReplaceAllStringFunc(text, func(marker string) string {
		k, err := strconv.Atoi(marker[1 : len(marker)-1])
		if err != nil || k < 1 || k > len(sources) {
			return marker
		}
		return render(k, sources[k-1])
	})
}

// LinkCitations renders markers as markdown links to the source URL.
func LinkCitations(text string, sources []protocol.Source) string {
	return RenderCitations(text, sources, func(k int, src protocol.Source) string {
		return fmt.Sprintf("[%d](%s)", k, src.Metadata.URL)
	})
}

// StripCitations removes all markers, e.g. before text-to-speech.
func StripCitations(text string) string {
	return citationMarker.ReplaceAllString(text, "")
}
