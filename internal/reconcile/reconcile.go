// Package reconcile computes which catalog topics need (re)generation by
// comparing the desired catalog against the recorded generation state. It is
// side-effect free: planning never touches the article store or the state
// file, so a dry run is exactly a plan that is printed instead of executed.
package reconcile

import (
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

// Reason explains why a topic made it onto the work list.
type Reason string

const (
	// ReasonNew means no state record exists for the topic.
	ReasonNew Reason = "new"
	// ReasonChanged means the recorded fingerprint differs from the
	// catalog entry's current fingerprint.
	ReasonChanged Reason = "changed"
	// ReasonForced means the caller explicitly requested regeneration.
	ReasonForced Reason = "forced"
)

// Item is one unit of pending work.
type Item struct {
	Topic  catalog.Topic
	Reason Reason
}

// Plan returns the topics requiring generation, in catalog order. A topic is
// included when it has no state record, when its content fingerprint no
// longer matches the recorded one, or when its slug appears in force.
// Running Plan twice against unchanged inputs yields the same list; running
// it after all items completed yields an empty list.
func Plan(topics []catalog.Topic, st state.Store, force map[string]bool) []Item {
	var items []Item
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if seen[t.Slug] {
			continue
		}
		seen[t.Slug] = true

		if force[t.Slug] {
			items = append(items, Item{Topic: t, Reason: ReasonForced})
			continue
		}
		rec, ok := st.Get(t.Slug)
		if !ok {
			items = append(items, Item{Topic: t, Reason: ReasonNew})
			continue
		}
		if rec.Fingerprint != catalog.Fingerprint(t) {
			items = append(items, Item{Topic: t, Reason: ReasonChanged})
		}
	}
	return items
}

// Slugs projects a plan to its slugs, preserving order. Used for logging and
// dry-run output.
func Slugs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Topic.Slug
	}
	return out
}
