// Package media implements the upload widget used by admin forms to attach
// a profile or class image hosted by a third-party upload provider.
//
// A Widget binds to the provider through a ScriptReadinessProbe, mirrors the
// value owned by its parent form, emits new values through Props.OnChange and
// revokes its own uploads through a Deleter.
package media

import "encoding/json"

// AssetReference identifies a successfully uploaded remote asset.
// It is a value: replace it, never mutate it.
type AssetReference struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

func (a *AssetReference) clone() *AssetReference {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// SameAsset reports whether a and b reference the same asset. Two nil references are the same.
func SameAsset(a, b *AssetReference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type State int

const (
	StateEmpty State = iota
	StatePreviewing
	StateRemoving
)

var stateNames = map[State]string{
	StateEmpty:      "empty",
	StatePreviewing: "previewing",
	StateRemoving:   "removing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Snapshot is a point-in-time view of a Widget, safe to hand out.
type Snapshot struct {
	State    State           `json:"state"`
	Value    *AssetReference `json:"value"`
	Ready    bool            `json:"ready"`
	Disabled bool            `json:"disabled"`
	Mounted  bool            `json:"mounted"`
}
