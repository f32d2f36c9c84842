package zsr

import (
	"encoding/json"
	"sort"
	"sync"
)

// Preset is one named settings bundle, stored under its shortest alias.
// Settings is the raw document entry and is passed to the seed service
// verbatim.
type Preset struct {
	FullName string
	Settings json.RawMessage
}

// Branch is one upstream randomizer code line. It owns its cached build
// version and preset catalog; the two are refreshed together. Branches are
// shared across race sessions, so reads and refreshes go through the lock.
type Branch struct {
	Key         string // stable identifier used in commands and config
	Name        string // display name
	TargetName  string // upstream branch name used for version lookups
	SettingsURL string

	mu      sync.RWMutex
	version string
	presets map[string]Preset
}

// StableKey is the branch key of the release line. Every other branch is
// dev-class and carries a version parameter on seed requests.
const StableKey = "stable"

// DefaultBranches returns the known randomizer branches.
func DefaultBranches() []*Branch {
	return []*Branch{
		{
			Key:         StableKey,
			Name:        "Stable (Release)",
			TargetName:  "master",
			SettingsURL: "https://raw.githubusercontent.com/OoTRandomizer/OoT-Randomizer/release/data/presets_default.json",
		},
		{
			Key:         "dev",
			Name:        "Dev (Main)",
			TargetName:  "dev",
			SettingsURL: "https://raw.githubusercontent.com/OoTRandomizer/OoT-Randomizer/Dev/data/presets_default.json",
		},
		{
			Key:         "dev-rob",
			Name:        "Dev-Rob",
			TargetName:  "devrreal",
			SettingsURL: "https://raw.githubusercontent.com/rrealmuto/OoT-Randomizer/Dev-Rob/data/presets_default.json",
		},
		{
			Key:         "dev-fenhl",
			Name:        "Dev-Fenhl",
			TargetName:  "devFenhl",
			SettingsURL: "https://raw.githubusercontent.com/fenhl/OoT-Randomizer/dev-fenhl/data/presets_default.json",
		},
		{
			Key:         "dev-enemy-shuffle",
			Name:        "Dev-Enemy-Shuffle",
			TargetName:  "devEnemyShuffle",
			SettingsURL: "https://raw.githubusercontent.com/rrealmuto/OoT-Randomizer/enemy_shuffle/data/presets_default.json",
		},
	}
}

// IsStable reports whether this is the release branch.
func (b *Branch) IsStable() bool {
	return b.Key == StableKey
}

// Version returns the cached build version, which may be empty before the
// first refresh.
func (b *Branch) Version() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Resolve looks up a preset by alias.
func (b *Branch) Resolve(alias string) (Preset, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	preset, ok := b.presets[alias]
	return preset, ok
}

// Presets returns a copy of the catalog keyed by alias.
func (b *Branch) Presets() map[string]Preset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	presets := make(map[string]Preset, len(b.presets))
	for alias, preset := range b.presets {
		presets[alias] = preset
	}
	return presets
}

// Aliases returns the catalog's aliases in sorted order.
func (b *Branch) Aliases() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	aliases := make([]string, 0, len(b.presets))
	for alias := range b.presets {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func (b *Branch) setPresets(presets map[string]Preset) {
	b.mu.Lock()
	b.presets = presets
	b.mu.Unlock()
}

// setVersion stores the version and reports whether it differed from the
// cached value.
func (b *Branch) setVersion(version string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if version == b.version {
		return false
	}
	b.version = version
	return true
}
