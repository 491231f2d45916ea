package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a target definition to the registry.
// Panics if a target with the same key is already registered or if a
// document target is missing its document hooks.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("target already registered: %s", def.Info.Key))
	}
	if def.Info.Kind == KindDocument {
		if def.DecodeDoc == nil || def.EncodeDoc == nil || def.MergeDoc == nil {
			panic(fmt.Sprintf("document target %s missing document hooks", def.Info.Key))
		}
	}

	registry[def.Info.Key] = def
}

// Get returns a target definition by key.
// Returns false if not found.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered target definitions, sorted by key for
// consistent ordering.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// FlatCollections returns the record-store collection names of all flat
// targets, sorted.
func FlatCollections() []string {
	var names []string
	for _, def := range All() {
		if def.Info.Kind == KindFlat {
			names = append(names, def.Info.Collection)
		}
	}
	return names
}

// DocumentKeys returns the document-store keys of all document targets,
// sorted.
func DocumentKeys() []string {
	var keys []string
	for _, def := range All() {
		if def.Info.Kind == KindDocument {
			keys = append(keys, def.Info.Collection)
		}
	}
	return keys
}

// Count returns the number of registered targets.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
