package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EntityID derives the stable content-addressed ID for an entity. The hash
// covers only the normalized name and lowercased type, so the same identity
// always yields the same ID regardless of call order or prior state. Hash
// collisions are treated as identity; there is no salt or counter.
func EntityID(name, entityType string) string {
	content := NormalizeName(name) + "|" + strings.ToLower(strings.TrimSpace(entityType))
	sum := sha256.Sum256([]byte(content))
	return "entity_" + hex.EncodeToString(sum[:8])
}

// Registry owns the canonical entity and relation tables for one graph
// build run. It is not safe for concurrent use; each run owns exactly one
// Registry (see Engine).
type Registry struct {
	entities  map[string]*Entity // entity ID -> entity
	order     []string           // entity IDs in insertion order
	relations []Relation
	relKeys   map[RelationKey]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		relKeys:  make(map[RelationKey]bool),
	}
}

// Merge inserts the entity if absent. If an entity with the same ID already
// exists, Name and Description are each replaced only when the incoming
// value is strictly longer. Returns the canonical ID and whether the entity
// was new.
func (g *Registry) Merge(e Entity) (string, bool) {
	if e.ID == "" {
		e.ID = EntityID(e.Name, e.Type)
	}

	existing, ok := g.entities[e.ID]
	if !ok {
		stored := e
		g.entities[e.ID] = &stored
		g.order = append(g.order, e.ID)
		return e.ID, true
	}

	if len(e.Name) > len(existing.Name) {
		existing.Name = e.Name
	}
	if len(e.Description) > len(existing.Description) {
		existing.Description = e.Description
	}
	return e.ID, false
}

// AddRelation appends the relation unless its (source, label, target) key
// is already present or either endpoint is missing from the entity table.
// Returns whether the relation was added.
func (g *Registry) AddRelation(r Relation) (bool, error) {
	if _, ok := g.entities[r.SourceID]; !ok {
		return false, fmt.Errorf("relation source %q not in entity table", r.SourceID)
	}
	if _, ok := g.entities[r.TargetID]; !ok {
		return false, fmt.Errorf("relation target %q not in entity table", r.TargetID)
	}
	key := r.Key()
	if g.relKeys[key] {
		return false, nil
	}
	g.relKeys[key] = true
	g.relations = append(g.relations, r)
	return true, nil
}

// Entity returns the entity with the given ID, or nil.
func (g *Registry) Entity(id string) *Entity {
	return g.entities[id]
}

// FindIDByName returns the ID of the entity whose normalized name matches,
// or "" when absent. Linear scan: graphs here are tens to low hundreds of
// nodes.
func (g *Registry) FindIDByName(name string) string {
	want := NormalizeName(name)
	for _, id := range g.order {
		if NormalizeName(g.entities[id].Name) == want {
			return id
		}
	}
	return ""
}

// TypeOf returns the type of the entity with the given name, defaulting to
// concept when the name is unknown.
func (g *Registry) TypeOf(name string) string {
	if id := g.FindIDByName(name); id != "" {
		return g.entities[id].Type
	}
	return EntityConcept
}

// Entities returns all entities in insertion order.
func (g *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.entities[id])
	}
	return out
}

// Names returns all entity names in insertion order.
func (g *Registry) Names() []string {
	out := make([]string, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id].Name)
	}
	return out
}

// Relations returns all accepted relations in insertion order.
func (g *Registry) Relations() []Relation {
	out := make([]Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// EntityCount returns the number of entities in the table.
func (g *Registry) EntityCount() int { return len(g.entities) }

// RelationCount returns the number of accepted relations.
func (g *Registry) RelationCount() int { return len(g.relations) }

// adjacency builds an undirected neighbour map keyed by normalized entity
// name. Shared by the scheduler's distance computation.
func (g *Registry) adjacency() map[string]map[string]bool {
	adj := make(map[string]map[string]bool)
	add := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	for _, r := range g.relations {
		src := NormalizeName(r.SourceName)
		tgt := NormalizeName(r.TargetName)
		if src == "" || tgt == "" {
			continue
		}
		add(src, tgt)
		add(tgt, src)
	}
	return adj
}

// Distance returns the shortest-path distance between two entities over the
// undirected relation graph, comparing normalized names. Returns 0 for the
// same entity and -1 when either endpoint is absent or unreachable.
func (g *Registry) Distance(nameA, nameB string) int {
	a := NormalizeName(nameA)
	b := NormalizeName(nameB)
	if a == b {
		return 0
	}

	adj := g.adjacency()
	if adj[a] == nil || adj[b] == nil {
		return -1
	}

	type step struct {
		name string
		dist int
	}
	queue := []step{{a, 0}}
	visited := map[string]bool{a: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.name == b {
			return cur.dist
		}
		for n := range adj[cur.name] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, step{n, cur.dist + 1})
			}
		}
	}
	return -1
}
