// Package graph maintains the bidirectional link graph between notes.
//
// Each node records its outgoing wikilink targets and the sources that link
// back to it. Updates are diff-based: changing one note's links touches only
// the backlink lists of targets that were added or removed, so the invariant
// "B lists A as a backlink iff A currently links to B" survives incremental
// re-indexing.
//
// A node whose note has been removed but that other notes still reference is
// retained as a ghost (empty links, non-empty backlinks) until its last
// backlink disappears; deleting it earlier would silently break referential
// accounting for the remaining backlink holders.
package graph

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Node holds the adjacency state for one source or link target.
type Node struct {
	Links     []string `json:"links"`
	Backlinks []string `json:"backlinks"`

	// Indexed marks nodes materialized by UpdateSource, as opposed to nodes
	// created only to hold backlinks for a referenced target.
	Indexed bool `json:"indexed,omitempty"`
}

// Related is the neighborhood of a single node.
type Related struct {
	Links     []string `json:"links"`
	Backlinks []string `json:"backlinks"`
}

// Graph is an in-process link graph, safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	logger *zap.Logger
}

// New returns an empty graph.
func New(logger *zap.Logger) *Graph {
	return &Graph{
		nodes:  make(map[string]*Node),
		logger: logger,
	}
}

// UpdateSource re-extracts links from text and diffs them against the stored
// link set for sourceID, adjusting only the backlinks that actually changed.
func (g *Graph) UpdateSource(sourceID, text string) {
	links := ExtractLinks(text)

	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.nodes[sourceID]
	if node == nil {
		node = &Node{}
		g.nodes[sourceID] = node
	}
	node.Indexed = true

	oldSet := make(map[string]struct{}, len(node.Links))
	for _, t := range node.Links {
		oldSet[t] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(links))
	for _, t := range links {
		newSet[t] = struct{}{}
	}

	for _, t := range node.Links {
		if _, still := newSet[t]; !still {
			g.dropBacklink(t, sourceID)
		}
	}

	for _, t := range links {
		if _, had := oldSet[t]; !had {
			g.addBacklink(t, sourceID)
		}
	}

	node.Links = links

	g.logger.Debug("graph source updated",
		zap.String("source_id", sourceID),
		zap.Int("links", len(links)),
	)
}

// RemoveSource retracts sourceID from the graph. Its outgoing backlinks are
// removed from every target; the node itself survives as a ghost while other
// sources still link to it.
func (g *Graph) RemoveSource(sourceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.nodes[sourceID]
	if node == nil {
		return
	}

	for _, t := range node.Links {
		g.dropBacklink(t, sourceID)
	}
	node.Links = nil
	node.Indexed = false

	if len(node.Backlinks) == 0 {
		delete(g.nodes, sourceID)
	}

	g.logger.Debug("graph source removed", zap.String("source_id", sourceID))
}

// Related resolves id against stored node keys and returns its neighborhood.
// Resolution is best effort: exact match, then the ".md" suffix stripped,
// then a scan for any key whose basename matches the query's basename (link
// targets are often written without full paths or extensions). No match
// yields an empty neighborhood, never an error.
func (g *Graph) Related(id string) Related {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node := g.resolve(id)
	if node == nil {
		return Related{}
	}

	out := Related{
		Links:     make([]string, len(node.Links)),
		Backlinks: make([]string, len(node.Backlinks)),
	}
	copy(out.Links, node.Links)
	copy(out.Backlinks, node.Backlinks)
	return out
}

// Orphans returns every node key with no backlinks, sorted for stable output.
func (g *Graph) Orphans() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for key, node := range g.nodes {
		if len(node.Backlinks) == 0 {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Ghosts returns every retained ghost node key, sorted.
func (g *Graph) Ghosts() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for key, node := range g.nodes {
		if !node.Indexed && len(node.Links) == 0 && len(node.Backlinks) > 0 {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of nodes, ghosts included.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// resolve is the lookup half of Related. Callers hold at least a read lock.
func (g *Graph) resolve(id string) *Node {
	if node, ok := g.nodes[id]; ok {
		return node
	}
	if stripped := trimMarkdownSuffix(id); stripped != id {
		if node, ok := g.nodes[stripped]; ok {
			return node
		}
	}
	want := baseName(id)
	for key, node := range g.nodes {
		if baseName(key) == want {
			return node
		}
	}
	return nil
}

// addBacklink records source as a backlink of target, creating the target
// node if this is the first reference to it.
func (g *Graph) addBacklink(target, source string) {
	node := g.nodes[target]
	if node == nil {
		node = &Node{}
		g.nodes[target] = node
	}
	for _, b := range node.Backlinks {
		if b == source {
			return
		}
	}
	node.Backlinks = append(node.Backlinks, source)
}

// dropBacklink removes source from target's backlinks and prunes target-only
// nodes that no longer hold any state.
func (g *Graph) dropBacklink(target, source string) {
	node := g.nodes[target]
	if node == nil {
		return
	}
	kept := node.Backlinks[:0]
	for _, b := range node.Backlinks {
		if b != source {
			kept = append(kept, b)
		}
	}
	node.Backlinks = kept

	if !node.Indexed && len(node.Links) == 0 && len(node.Backlinks) == 0 {
		delete(g.nodes, target)
	}
}

func trimMarkdownSuffix(s string) string {
	if len(s) > 3 && s[len(s)-3:] == ".md" {
		return s[:len(s)-3]
	}
	return s
}

// baseName returns the final path segment with any ".md" suffix stripped.
func baseName(s string) string {
	s = trimMarkdownSuffix(s)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
