package git

import (
	"strings"

	"github.com/NicabarNimble/submod/internal/config"
)

// StatusFlags is the set of states a submodule can be in, mirroring the
// categories git reports for a gitlink.
type StatusFlags uint32

const (
	StatusInHead StatusFlags = 1 << iota
	StatusInIndex
	StatusInConfig
	StatusInWorkdir
	StatusIndexAdded
	StatusIndexDeleted
	StatusIndexModified
	StatusWorkdirUninitialized
	StatusWorkdirAdded
	StatusWorkdirDeleted
	StatusWorkdirModified
	StatusWorkdirIndexModified
	StatusWorkdirWorkdirModified
	StatusWorkdirUntracked
)

var statusFlagNames = []struct {
	flag StatusFlags
	name string
}{
	{StatusInHead, "in-head"},
	{StatusInIndex, "in-index"},
	{StatusInConfig, "in-config"},
	{StatusInWorkdir, "in-workdir"},
	{StatusIndexAdded, "index-added"},
	{StatusIndexDeleted, "index-deleted"},
	{StatusIndexModified, "index-modified"},
	{StatusWorkdirUninitialized, "wd-uninitialized"},
	{StatusWorkdirAdded, "wd-added"},
	{StatusWorkdirDeleted, "wd-deleted"},
	{StatusWorkdirModified, "wd-modified"},
	{StatusWorkdirIndexModified, "wd-index-modified"},
	{StatusWorkdirWorkdirModified, "wd-wd-modified"},
	{StatusWorkdirUntracked, "wd-untracked"},
}

// dirtyFlags are the flags that count as local modifications
const dirtyFlags = StatusIndexAdded | StatusIndexDeleted | StatusIndexModified |
	StatusWorkdirAdded | StatusWorkdirDeleted | StatusWorkdirModified |
	StatusWorkdirIndexModified | StatusWorkdirWorkdirModified | StatusWorkdirUntracked

// LocalChanges are the flags raised by uncommitted work inside the
// submodule's own working tree
const LocalChanges = StatusWorkdirIndexModified | StatusWorkdirWorkdirModified | StatusWorkdirUntracked

// Has reports whether every bit of flag is set
func (f StatusFlags) Has(flag StatusFlags) bool {
	return f&flag == flag
}

// Dirty reports whether any modification flag is set
func (f StatusFlags) Dirty() bool {
	return f&dirtyFlags != 0
}

func (f StatusFlags) String() string {
	var names []string
	for _, n := range statusFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// DetailedStatus is the read model assembled for one submodule on every
// status query.
type DetailedStatus struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`

	HeadOID    string `json:"headOid,omitempty" yaml:"headOid,omitempty"`
	IndexOID   string `json:"indexOid,omitempty" yaml:"indexOid,omitempty"`
	WorkdirOID string `json:"workdirOid,omitempty" yaml:"workdirOid,omitempty"`

	Flags StatusFlags `json:"flags" yaml:"flags"`

	Ignore       config.Ignore       `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Update       config.Update       `json:"update,omitempty" yaml:"update,omitempty"`
	FetchRecurse config.FetchRecurse `json:"fetchRecurse,omitempty" yaml:"fetchRecurse,omitempty"`
	Branch       config.Branch       `json:"branch,omitempty" yaml:"branch,omitempty"`

	Initialized      bool `json:"initialized" yaml:"initialized"`
	Active           bool `json:"active" yaml:"active"`
	HasModifications bool `json:"hasModifications" yaml:"hasModifications"`

	SparseEnabled  bool     `json:"sparseEnabled" yaml:"sparseEnabled"`
	SparsePatterns []string `json:"sparsePatterns,omitempty" yaml:"sparsePatterns,omitempty"`

	Remotes             []string `json:"remotes,omitempty" yaml:"remotes,omitempty"`
	HasNestedSubmodules bool     `json:"hasNestedSubmodules" yaml:"hasNestedSubmodules"`
}

// Clean reports whether the submodule has no local modifications
func (s *DetailedStatus) Clean() bool {
	return !s.HasModifications
}

// ApplyRules copies the submodule rules of a .gitmodules entry into s
func (s *DetailedStatus) ApplyRules(e *config.SubmoduleEntry) {
	if e == nil {
		return
	}
	s.Name = e.Name
	s.URL = e.URL
	s.Ignore = e.Ignore
	s.Update = e.Update
	s.FetchRecurse = e.FetchRecurse
	s.Branch = e.Branch
	s.Flags |= StatusInConfig
}

// workdirFlags are the changes found in the submodule's checkout, as
// opposed to gitlink changes staged in the superproject
const workdirFlags = StatusWorkdirAdded | StatusWorkdirDeleted | StatusWorkdirModified | LocalChanges

// Modified applies a submodule ignore rule to the working tree flags.
// IgnoreAll hides every change, IgnoreDirty only reports a checked out
// commit that differs from the recorded one, and IgnoreUntracked hides
// untracked files. Staged gitlink changes in the superproject never count.
func (f StatusFlags) Modified(ignore config.Ignore) bool {
	switch ignore {
	case config.IgnoreAll:
		return false
	case config.IgnoreDirty:
		return f.Has(StatusWorkdirModified)
	case config.IgnoreUntracked:
		return f&workdirFlags&^StatusWorkdirUntracked != 0
	default:
		return f&workdirFlags != 0
	}
}
