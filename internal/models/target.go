package models

import "strings"

// RelationKind is one independently toggleable relation between the caller and a target
type RelationKind string

const (
	KindUser  RelationKind = "user"
	KindTitle RelationKind = "title"
	KindMute  RelationKind = "mute"
)

// AllKinds lists relation kinds in the order the executor issues them
var AllKinds = []RelationKind{KindUser, KindTitle, KindMute}

// Valid reports whether k is a known relation kind
func (k RelationKind) Valid() bool {
	return k == KindUser || k == KindTitle || k == KindMute
}

// QueryCode returns the remote "r" parameter for the kind
func (k RelationKind) QueryCode() string {
	switch k {
	case KindUser:
		return "m"
	case KindTitle:
		return "i"
	case KindMute:
		return "u"
	}
	return ""
}

// RelationFlags records which relations are already applied to a target.
// A nil pointer means unknown.
type RelationFlags struct {
	Blocked      *bool `json:"blocked,omitempty"`
	TitleBlocked *bool `json:"title_blocked,omitempty"`
	Muted        *bool `json:"muted,omitempty"`
}

// KnownFlags returns flags with every kind known and not applied
func KnownFlags() *RelationFlags {
	blocked, titleBlocked, muted := false, false, false
	return &RelationFlags{Blocked: &blocked, TitleBlocked: &titleBlocked, Muted: &muted}
}

// Has reports whether the flag for kind is known to be set
func (f *RelationFlags) Has(kind RelationKind) bool {
	if f == nil {
		return false
	}
	var v *bool
	switch kind {
	case KindUser:
		v = f.Blocked
	case KindTitle:
		v = f.TitleBlocked
	case KindMute:
		v = f.Muted
	}
	return v != nil && *v
}

// Set marks kind as applied
func (f *RelationFlags) Set(kind RelationKind) {
	t := true
	switch kind {
	case KindUser:
		f.Blocked = &t
	case KindTitle:
		f.TitleBlocked = &t
	case KindMute:
		f.Muted = &t
	}
}

// Clone returns an independent copy
func (f *RelationFlags) Clone() *RelationFlags {
	if f == nil {
		return nil
	}
	return &RelationFlags{
		Blocked:      copyBool(f.Blocked),
		TitleBlocked: copyBool(f.TitleBlocked),
		Muted:        copyBool(f.Muted),
	}
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Target is one remote account a job acts on
type Target struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Flags       *RelationFlags `json:"flags,omitempty"`
}

// Resolved reports whether the target carries a usable remote id.
// Empty and "0" ids are unresolvable and short-circuit to success.
func (t Target) Resolved() bool {
	return IsResolvableID(t.ID)
}

// IsResolvableID reports whether id names a real remote account
func IsResolvableID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && id != "0"
}

// NormalizeName applies the site convention of hyphens for spaces
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
}

// Kinds is the set of relation kinds requested for one target
type Kinds struct {
	User  bool `json:"user"`
	Title bool `json:"title"`
	Mute  bool `json:"mute"`
}

// KindsOf builds a set containing only kind
func KindsOf(kind RelationKind) Kinds {
	return Kinds{
		User:  kind == KindUser,
		Title: kind == KindTitle,
		Mute:  kind == KindMute,
	}
}

// Wants reports whether kind is requested
func (k Kinds) Wants(kind RelationKind) bool {
	switch kind {
	case KindUser:
		return k.User
	case KindTitle:
		return k.Title
	case KindMute:
		return k.Mute
	}
	return false
}

// Empty reports whether no kind is requested
func (k Kinds) Empty() bool {
	return !k.User && !k.Title && !k.Mute
}

// List returns the requested kinds in issue order
func (k Kinds) List() []RelationKind {
	kinds := make([]RelationKind, 0, 3)
	for _, kind := range AllKinds {
		if k.Wants(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Page is one fetched page of a paginated scrape
type Page struct {
	Targets []Target
	End     PageEnd // why the sequence stops after this page, PageMore to continue
}

// PageEnd is the explicit end-of-sequence reason of a page
type PageEnd int

const (
	PageMore     PageEnd = iota // more pages may follow
	PageLast                    // remote marked this page as last
	PageEmpty                   // zero rows
	PageNotFound                // remote answered not-found, expected past the last page
	PageFailed                  // fetch or parse failed (ResolutionError)
)

// Client is the logged-in caller
type Client struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}
