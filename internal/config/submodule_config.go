package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NicabarNimble/submod/internal/errors"
)

// DefaultsTable is the reserved top-level table holding project defaults.
const DefaultsTable = "defaults"

// Ignore governs what git treats as a clean submodule.
type Ignore string

const (
	IgnoreAll       Ignore = "all"
	IgnoreDirty     Ignore = "dirty"
	IgnoreUntracked Ignore = "untracked"
	IgnoreNone      Ignore = "none"
)

// UnmarshalText validates an ignore value
func (i *Ignore) UnmarshalText(text []byte) error {
	v, err := ParseIgnore(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseIgnore parses an ignore rule; the empty string means unset
func ParseIgnore(s string) (Ignore, error) {
	switch v := Ignore(strings.ToLower(strings.TrimSpace(s))); v {
	case "", IgnoreAll, IgnoreDirty, IgnoreUntracked, IgnoreNone:
		return v, nil
	default:
		return "", fmt.Errorf("%w: invalid ignore value %q (want all, dirty, untracked or none)", errors.ErrInvalidConfig, s)
	}
}

// Update is the strategy applied when a submodule is updated.
type Update string

const (
	UpdateCheckout Update = "checkout"
	UpdateRebase   Update = "rebase"
	UpdateMerge    Update = "merge"
	UpdateNone     Update = "none"
)

// UnmarshalText validates an update value
func (u *Update) UnmarshalText(text []byte) error {
	v, err := ParseUpdate(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// ParseUpdate parses an update strategy; the empty string means unset
func ParseUpdate(s string) (Update, error) {
	switch v := Update(strings.ToLower(strings.TrimSpace(s))); v {
	case "", UpdateCheckout, UpdateRebase, UpdateMerge, UpdateNone:
		return v, nil
	default:
		return "", fmt.Errorf("%w: invalid update value %q (want checkout, rebase, merge or none)", errors.ErrInvalidConfig, s)
	}
}

// FetchRecurse controls recursive fetching of nested submodules.
type FetchRecurse string

const (
	FetchOnDemand FetchRecurse = "on-demand"
	FetchAlways   FetchRecurse = "always"
	FetchNever    FetchRecurse = "never"
)

// UnmarshalText validates a fetchRecurse value
func (f *FetchRecurse) UnmarshalText(text []byte) error {
	v, err := ParseFetchRecurse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFetchRecurse parses a fetchRecurse value; the empty string means unset
func ParseFetchRecurse(s string) (FetchRecurse, error) {
	switch v := FetchRecurse(strings.ToLower(strings.TrimSpace(s))); v {
	case "", FetchOnDemand, FetchAlways, FetchNever:
		return v, nil
	case "true", "yes":
		return FetchAlways, nil
	case "false", "no":
		return FetchNever, nil
	default:
		return "", fmt.Errorf("%w: invalid fetchRecurse value %q (want on-demand, always or never)", errors.ErrInvalidConfig, s)
	}
}

// GitValue returns the value git expects for submodule.<name>.fetchRecurseSubmodules
func (f FetchRecurse) GitValue() string {
	switch f {
	case FetchAlways:
		return "true"
	case FetchNever:
		return "false"
	default:
		return "on-demand"
	}
}

// Branch is the branch a submodule tracks. BranchCurrent follows the
// branch currently checked out in the superproject; any other non-empty
// value names a branch.
type Branch string

// BranchCurrent is git's "." convention for submodule.<name>.branch.
const BranchCurrent Branch = "."

// UnmarshalText normalises the aliases for BranchCurrent
func (b *Branch) UnmarshalText(text []byte) error {
	*b = ParseBranch(string(text))
	return nil
}

// ParseBranch normalises a branch value
func ParseBranch(s string) Branch {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case ".", "current", "current-in-superproject", "current-in-super-project":
		return BranchCurrent
	}
	return Branch(s)
}

// IsCurrent reports whether the branch follows the superproject
func (b Branch) IsCurrent() bool {
	return b == BranchCurrent
}

// Name returns the named branch, or "" for BranchCurrent and unset
func (b Branch) Name() string {
	if b.IsCurrent() {
		return ""
	}
	return string(b)
}

// Built-in fallbacks used when neither the entry nor the defaults set a value.
const (
	BuiltinIgnore       = IgnoreNone
	BuiltinUpdate       = UpdateCheckout
	BuiltinFetchRecurse = FetchOnDemand
	BuiltinBranch       = BranchCurrent
)

// Defaults holds project-wide fallback values. Empty fields are unset.
type Defaults struct {
	Ignore       Ignore       `toml:"ignore,omitempty" json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Update       Update       `toml:"update,omitempty" json:"update,omitempty" yaml:"update,omitempty"`
	Branch       Branch       `toml:"branch,omitempty" json:"branch,omitempty" yaml:"branch,omitempty"`
	FetchRecurse FetchRecurse `toml:"fetchRecurse,omitempty" json:"fetchRecurse,omitempty" yaml:"fetchRecurse,omitempty"`
}

// SubmoduleEntry is one configured submodule
type SubmoduleEntry struct {
	Name         string       `json:"name" yaml:"name"`
	Path         string       `json:"path,omitempty" yaml:"path,omitempty"`
	URL          string       `json:"url,omitempty" yaml:"url,omitempty"`
	Branch       Branch       `json:"branch,omitempty" yaml:"branch,omitempty"`
	Ignore       Ignore       `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Update       Update       `json:"update,omitempty" yaml:"update,omitempty"`
	FetchRecurse FetchRecurse `json:"fetchRecurse,omitempty" yaml:"fetchRecurse,omitempty"`
	Active       bool         `json:"active" yaml:"active"`
	Shallow      bool         `json:"shallow" yaml:"shallow"`
	SparsePaths  []string     `json:"sparse_paths,omitempty" yaml:"sparse_paths,omitempty"`
}

// NewEntry creates an active entry
func NewEntry(name, path, url string) *SubmoduleEntry {
	return &SubmoduleEntry{Name: name, Path: path, URL: url, Active: true}
}

// Problems lists the configuration errors that prevent live operations
// on this entry. An empty result means the entry is usable.
func (e *SubmoduleEntry) Problems() []string {
	var problems []string
	if strings.TrimSpace(e.Path) == "" {
		problems = append(problems, "missing path")
	}
	if strings.TrimSpace(e.URL) == "" {
		problems = append(problems, "missing url")
	}
	return problems
}

// Validate returns an error describing Problems, if any
func (e *SubmoduleEntry) Validate() error {
	if problems := e.Problems(); len(problems) > 0 {
		return fmt.Errorf("%w: submodule %q: %s", errors.ErrInvalidConfig, e.Name, strings.Join(problems, ", "))
	}
	return nil
}

// HasSparse reports whether sparse checkout is requested
func (e *SubmoduleEntry) HasSparse() bool {
	return len(e.SparsePaths) > 0
}

// Clone returns a deep copy of the entry
func (e *SubmoduleEntry) Clone() *SubmoduleEntry {
	c := *e
	if e.SparsePaths != nil {
		c.SparsePaths = append([]string(nil), e.SparsePaths...)
	}
	return &c
}

// Configuration is the in-memory form of the TOML file. Defaults holds
// the effective defaults, including command-line overrides.
type Configuration struct {
	Defaults   Defaults
	Submodules map[string]*SubmoduleEntry

	// fileDefaults is what the file holds when overrides were merged in
	fileDefaults *Defaults
}

// persistedDefaults returns the defaults to write back to the file
func (c *Configuration) persistedDefaults() Defaults {
	if c.fileDefaults != nil {
		return *c.fileDefaults
	}
	return c.Defaults
}

// NewConfiguration returns an empty configuration
func NewConfiguration() *Configuration {
	return &Configuration{Submodules: make(map[string]*SubmoduleEntry)}
}

// Get returns the entry for name
func (c *Configuration) Get(name string) (*SubmoduleEntry, bool) {
	e, ok := c.Submodules[name]
	return e, ok
}

// ByPath returns the entry whose path equals path
func (c *Configuration) ByPath(path string) (*SubmoduleEntry, bool) {
	for _, name := range c.Names() {
		if e := c.Submodules[name]; e.Path == path {
			return e, true
		}
	}
	return nil, false
}

// Add inserts a new entry. It fails with ErrNameCollision if the name is
// taken and leaves the configuration untouched.
func (c *Configuration) Add(e *SubmoduleEntry) error {
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if _, exists := c.Submodules[e.Name]; exists {
		return fmt.Errorf("%w: %q", errors.ErrNameCollision, e.Name)
	}
	c.Set(e)
	return nil
}

// Set inserts or replaces an entry
func (c *Configuration) Set(e *SubmoduleEntry) {
	if c.Submodules == nil {
		c.Submodules = make(map[string]*SubmoduleEntry)
	}
	c.Submodules[e.Name] = e
}

// Remove deletes an entry and reports whether it existed
func (c *Configuration) Remove(name string) bool {
	_, ok := c.Submodules[name]
	delete(c.Submodules, name)
	return ok
}

// Names returns entry names in sorted order
func (c *Configuration) Names() []string {
	names := make([]string, 0, len(c.Submodules))
	for name := range c.Submodules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all entries sorted by name
func (c *Configuration) Entries() []*SubmoduleEntry {
	entries := make([]*SubmoduleEntry, 0, len(c.Submodules))
	for _, name := range c.Names() {
		entries = append(entries, c.Submodules[name])
	}
	return entries
}

// ActiveEntries returns active entries sorted by name
func (c *Configuration) ActiveEntries() []*SubmoduleEntry {
	var entries []*SubmoduleEntry
	for _, e := range c.Entries() {
		if e.Active {
			entries = append(entries, e)
		}
	}
	return entries
}

// EffectiveIgnore resolves entry, then defaults, then the built-in value
func (c *Configuration) EffectiveIgnore(e *SubmoduleEntry) Ignore {
	return firstNonEmpty(e.Ignore, c.Defaults.Ignore, BuiltinIgnore)
}

// EffectiveUpdate resolves entry, then defaults, then the built-in value
func (c *Configuration) EffectiveUpdate(e *SubmoduleEntry) Update {
	return firstNonEmpty(e.Update, c.Defaults.Update, BuiltinUpdate)
}

// EffectiveFetchRecurse resolves entry, then defaults, then the built-in value
func (c *Configuration) EffectiveFetchRecurse(e *SubmoduleEntry) FetchRecurse {
	return firstNonEmpty(e.FetchRecurse, c.Defaults.FetchRecurse, BuiltinFetchRecurse)
}

// EffectiveBranch resolves entry, then defaults, then the built-in value
func (c *Configuration) EffectiveBranch(e *SubmoduleEntry) Branch {
	return firstNonEmpty(e.Branch, c.Defaults.Branch, BuiltinBranch)
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ValidateName checks that name can key a TOML table
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: submodule name cannot be empty", errors.ErrInvalidConfig)
	}
	if name == DefaultsTable {
		return fmt.Errorf("%w: %q is reserved", errors.ErrInvalidConfig, DefaultsTable)
	}
	return nil
}
