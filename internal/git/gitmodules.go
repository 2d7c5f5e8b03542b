package git

import (
	"sort"
	"strconv"
	"strings"

	"github.com/NicabarNimble/submod/internal/config"
)

// GitmodulesFile is the superproject file registering submodules
const GitmodulesFile = ".gitmodules"

// Option keys of a [submodule "name"] section
const (
	KeyPath         = "path"
	KeyURL          = "url"
	KeyBranch       = "branch"
	KeyIgnore       = "ignore"
	KeyUpdate       = "update"
	KeyFetchRecurse = "fetchRecurseSubmodules"
	KeyShallow      = "shallow"
	KeyActive       = "active"
)

// EntryFromOptions builds an entry from the options of one submodule
// section. Keys are matched case-insensitively, as git does. Values git
// accepts but submod does not model, such as custom update commands, are
// dropped.
func EntryFromOptions(name string, options map[string]string) *config.SubmoduleEntry {
	get := func(key string) string {
		for k, v := range options {
			if strings.EqualFold(k, key) {
				return v
			}
		}
		return ""
	}

	e := config.NewEntry(name, get(KeyPath), get(KeyURL))
	e.Branch = config.ParseBranch(get(KeyBranch))
	e.Ignore, _ = config.ParseIgnore(get(KeyIgnore))
	e.Update, _ = config.ParseUpdate(get(KeyUpdate))
	e.FetchRecurse, _ = config.ParseFetchRecurse(get(KeyFetchRecurse))
	e.Shallow, _ = strconv.ParseBool(get(KeyShallow))
	return e
}

// Option is one key/value pair of a config section
type Option struct {
	Key   string
	Value string
}

// EntryOptions returns the .gitmodules options describing e, in the
// order git writes them. Unset rules are omitted.
func EntryOptions(e *config.SubmoduleEntry) []Option {
	opts := []Option{
		{Key: KeyPath, Value: e.Path},
		{Key: KeyURL, Value: e.URL},
	}
	if e.Branch != "" {
		opts = append(opts, Option{Key: KeyBranch, Value: string(e.Branch)})
	}
	if e.Ignore != "" {
		opts = append(opts, Option{Key: KeyIgnore, Value: string(e.Ignore)})
	}
	if e.Update != "" {
		opts = append(opts, Option{Key: KeyUpdate, Value: string(e.Update)})
	}
	if e.FetchRecurse != "" {
		opts = append(opts, Option{Key: KeyFetchRecurse, Value: e.FetchRecurse.GitValue()})
	}
	if e.Shallow {
		opts = append(opts, Option{Key: KeyShallow, Value: "true"})
	}
	return opts
}

// SortedNames returns the keys of entries in sorted order
func SortedNames(entries map[string]*config.SubmoduleEntry) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindByPath returns the entry registered at path
func FindByPath(entries map[string]*config.SubmoduleEntry, path string) (*config.SubmoduleEntry, bool) {
	for _, name := range SortedNames(entries) {
		if e := entries[name]; e.Path == path {
			return e, true
		}
	}
	return nil, false
}

// Entry returns the .gitmodules entry described by the options
func (o AddOptions) Entry() *config.SubmoduleEntry {
	e := config.NewEntry(o.Name, o.Path, o.URL)
	e.Branch = o.Branch
	e.Ignore = o.Ignore
	e.Update = o.Update
	e.FetchRecurse = o.FetchRecurse
	e.Shallow = o.Shallow
	return e
}
