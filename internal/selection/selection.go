// Package selection implements click, ctrl-click and shift-click selection
// over an ordered listing as a pure reducer.
package selection

// ActionKind is the kind of pointer or keyboard activation
type ActionKind int

const (
	Activate ActionKind = iota
	DoubleActivate
	ContextRequest
)

func (k ActionKind) String() string {
	switch k {
	case Activate:
		return "activate"
	case DoubleActivate:
		return "double-activate"
	case ContextRequest:
		return "context-request"
	default:
		return "unknown"
	}
}

// Modifiers are the keyboard modifiers held during an activation.
// Ctrl also stands for Cmd/Meta.
type Modifiers struct {
	Ctrl  bool
	Shift bool
}

// Action is one activation of the entry at Index in the ordered listing
type Action struct {
	Kind  ActionKind
	Index int
	Mods  Modifiers
}

// State is an immutable selection: a set of keys plus the anchor used for
// shift-range computation. The zero value is an empty selection.
type State struct {
	selected map[string]struct{}
	anchor   string
	MenuOpen bool
}

// Reduce applies action to s over the ordered universe keys and returns the
// new state. s is never modified.
func Reduce(s State, keys []string, action Action) State {
	if action.Index < 0 || action.Index >= len(keys) {
		return s
	}
	key := keys[action.Index]

	switch action.Kind {
	case ContextRequest:
		next := s.clone()
		if !next.Contains(key) {
			next.selected = map[string]struct{}{key: {}}
			next.anchor = key
		}
		next.MenuOpen = true
		return next

	case DoubleActivate:
		return State{selected: map[string]struct{}{key: {}}, anchor: key}
	}

	// plain / ctrl / shift activation always dismisses the menu
	switch {
	case action.Mods.Shift:
		from := indexOf(keys, s.anchor)
		if from < 0 {
			from = 0
		}
		lo, hi := from, action.Index
		if lo > hi {
			lo, hi = hi, lo
		}
		selected := make(map[string]struct{}, hi-lo+1)
		for _, k := range keys[lo : hi+1] {
			selected[k] = struct{}{}
		}
		return State{selected: selected, anchor: s.anchor}

	case action.Mods.Ctrl:
		next := s.clone()
		if next.Contains(key) {
			delete(next.selected, key)
		} else {
			next.selected[key] = struct{}{}
		}
		next.anchor = key
		next.MenuOpen = false
		return next

	default:
		return State{selected: map[string]struct{}{key: {}}, anchor: key}
	}
}

// Contains reports whether key is selected
func (s State) Contains(key string) bool {
	_, ok := s.selected[key]
	return ok
}

// Len returns the number of selected keys
func (s State) Len() int {
	return len(s.selected)
}

// Anchor returns the anchor key, if any
func (s State) Anchor() (string, bool) {
	return s.anchor, s.anchor != ""
}

// Selected returns the selected keys in listing order
func (s State) Selected(keys []string) []string {
	out := make([]string, 0, len(s.selected))
	for _, k := range keys {
		if s.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}

// Clear returns an empty selection
func (s State) Clear() State {
	return State{}
}

// Retain drops selected keys (and the anchor) that are no longer listed
func (s State) Retain(keys []string) State {
	next := State{selected: make(map[string]struct{}, len(s.selected)), MenuOpen: s.MenuOpen}
	for _, k := range keys {
		if s.Contains(k) {
			next.selected[k] = struct{}{}
		}
		if k == s.anchor {
			next.anchor = k
		}
	}
	return next
}

// Rename moves selection membership and the anchor from oldKey to newKey
func (s State) Rename(oldKey, newKey string) State {
	next := s.clone()
	if next.Contains(oldKey) {
		delete(next.selected, oldKey)
		next.selected[newKey] = struct{}{}
	}
	if next.anchor == oldKey {
		next.anchor = newKey
	}
	return next
}

// CloseMenu dismisses the context menu
func (s State) CloseMenu() State {
	next := s.clone()
	next.MenuOpen = false
	return next
}

func (s State) clone() State {
	selected := make(map[string]struct{}, len(s.selected)+1)
	for k := range s.selected {
		selected[k] = struct{}{}
	}
	return State{selected: selected, anchor: s.anchor, MenuOpen: s.MenuOpen}
}

func indexOf(keys []string, key string) int {
	if key == "" {
		return -1
	}
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
