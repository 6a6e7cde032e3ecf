package dmarc

import "github.com/ginjaninja78/dmarc-report-parser/internal/config"

type position struct {
	parent string
	tag    string
}

// KeyResolver turns a record element's position into its column key.
//
// Resolution order:
//  1. an explicit (parent, tag) rule
//  2. parent + "_" + tag, for qualified tags such as "result"
//  3. the bare tag name
//
// A nil *KeyResolver always returns the bare tag name.
type KeyResolver struct {
	rules     map[position]string
	qualified map[string]bool
}

// NewKeyResolver builds a resolver from the record field configuration.
func NewKeyResolver(rf config.RecordFields) *KeyResolver {
	r := &KeyResolver{
		rules:     make(map[position]string, len(rf.KeyRules)),
		qualified: make(map[string]bool, len(rf.QualifiedTags)),
	}
	for _, rule := range rf.KeyRules {
		r.rules[position{parent: rule.Parent, tag: rule.Tag}] = rule.Key
	}
	for _, tag := range rf.QualifiedTags {
		r.qualified[tag] = true
	}
	return r
}

// Resolve returns the column key for tag found directly under parent.
func (r *KeyResolver) Resolve(parent, tag string) string {
	if r == nil {
		return tag
	}
	if key, ok := r.rules[position{parent: parent, tag: tag}]; ok {
		return key
	}
	if r.qualified[tag] && parent != "" {
		return parent + "_" + tag
	}
	return tag
}
