// =============================================================================
// DMARC Report Parser - Node Walkers
// =============================================================================
//
// The walkers flatten one section of the parsed XML tree into (key, value)
// pairs. Both visit every descendant depth-first in document order:
//   - An element with child elements is descended into and emits nothing.
//   - A leaf element whose tag is wanted emits its trimmed text. An empty
//     element such as <sp></sp> emits "" rather than being skipped.
//
// Walk uses the tag name as the key. WalkRecord resolves the key from the
// element's parent and tag, because record elements reuse names like
// <result> under both <dkim> and <spf>.
//
// =============================================================================

package dmarc

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
)

// Walk extracts the wanted tags beneath node. Used for the report metadata
// and published policy sections, where each tag occurs once.
//
// PARAMETERS:
//   - node: The section element. A nil node yields no pairs.
//   - tags: The tag names to extract.
//
// RETURNS:
//   - A new slice of pairs in document order.
func Walk(node *etree.Element, tags []string) types.TagValues {
	if node == nil {
		return nil
	}
	return walk(node, tagSet(tags), nil, types.TagValues{})
}

// WalkRecord extracts the wanted tags beneath one <record> element, naming
// each pair by keys.Resolve(parent tag, tag).
//
// PARAMETERS:
//   - record: The record element. A nil record yields no pairs.
//   - tags: The tag names to extract.
//   - keys: The key resolver. nil keeps bare tag names.
//
// RETURNS:
//   - A new slice of pairs in document order.
func WalkRecord(record *etree.Element, tags []string, keys *KeyResolver) types.TagValues {
	if record == nil {
		return nil
	}
	if keys == nil {
		keys = &KeyResolver{}
	}
	return walk(record, tagSet(tags), keys, types.TagValues{})
}

// walk appends the pairs found beneath node to out and returns it. The
// parent used for key resolution is always node itself, so nothing carries
// over between sibling subtrees.
func walk(node *etree.Element, want map[string]bool, keys *KeyResolver, out types.TagValues) types.TagValues {
	for _, child := range node.ChildElements() {
		if len(child.ChildElements()) > 0 {
			out = walk(child, want, keys, out)
			continue
		}
		if !want[child.Tag] {
			continue
		}

		key := child.Tag
		if keys != nil {
			key = keys.Resolve(node.Tag, child.Tag)
		}
		out = append(out, types.Pair{Key: key, Value: leafText(child)})
	}
	return out
}

// leafText joins every character data token of el, so comments and
// processing instructions inside a leaf do not cut its value short.
func leafText(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}
