package services

import "listingdesk/internal/domain"

// BuildTree turns a flat category list into a forest. Children keep input
// order; a category whose parent is not in the input becomes a root. Levels
// are not checked.
func BuildTree(cats []domain.Category) []*domain.CategoryNode {
	nodes := make(map[string]*domain.CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &domain.CategoryNode{
			ID:            c.ID,
			Name:          c.Name,
			Level:         c.Level,
			Path:          c.Path,
			ParentID:      c.ParentID,
			MarktplaatsID: c.MarktplaatsID,
			Fields:        c.Fields,
			Children:      []*domain.CategoryNode{},
		}
	}
	return link(cats, nodes)
}

// BuildFieldsTree keeps only branches that lead to a category with fields.
// Callers pass the fields-bearing categories together with their ancestors.
// A node whose literal parent is absent is attached at the root, never to a
// nearer ancestor that happens to be present.
func BuildFieldsTree(cats []domain.Category) []*domain.CategoryNode {
	nodes := make(map[string]*domain.CategoryNode, len(cats))
	hasFields := make(map[*domain.CategoryNode]bool, len(cats))
	for _, c := range cats {
		n := &domain.CategoryNode{
			ID:       c.ID,
			Name:     c.Name,
			Level:    c.Level,
			Path:     c.Path,
			Children: []*domain.CategoryNode{},
		}
		nodes[c.ID] = n
		hasFields[n] = len(c.Fields) > 0
	}
	return prune(link(cats, nodes), hasFields)
}

func link(cats []domain.Category, nodes map[string]*domain.CategoryNode) []*domain.CategoryNode {
	roots := []*domain.CategoryNode{}
	for _, c := range cats {
		n := nodes[c.ID]
		if parent, ok := nodes[c.Parent()]; ok && c.ParentID != nil && parent != n {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

func prune(in []*domain.CategoryNode, hasFields map[*domain.CategoryNode]bool) []*domain.CategoryNode {
	out := []*domain.CategoryNode{}
	for _, n := range in {
		kids := prune(n.Children, hasFields)
		if hasFields[n] || len(kids) > 0 {
			n.Children = kids
			out = append(out, n)
		}
	}
	return out
}

// ResolveAncestors grows seed with parent ids until a lookup round adds
// nothing new. parentsOf maps each known id to its parent id.
func ResolveAncestors(seed []string, parentsOf func(ids []string) (map[string]string, error)) ([]string, error) {
	have := make(map[string]bool, len(seed))
	ids := make([]string, 0, len(seed))
	for _, id := range seed {
		if id != "" && !have[id] {
			have[id] = true
			ids = append(ids, id)
		}
	}
	frontier := ids
	for len(frontier) > 0 {
		parents, err := parentsOf(frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, id := range frontier {
			p, ok := parents[id]
			if ok && p != "" && !have[p] {
				have[p] = true
				ids = append(ids, p)
				next = append(next, p)
			}
		}
		frontier = next
	}
	return ids, nil
}
