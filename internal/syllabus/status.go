package syllabus

// ComputeLinearStatus annotates ordered lessons in a single forward pass.
// Completed lessons are completed, the first lesson that is not is
// in_progress, and every later one is locked. At most one lesson is ever
// in_progress. The inputs are not modified.
func ComputeLinearStatus(leaves []Node, completed map[string]bool) []AnnotatedNode {
	out := make([]AnnotatedNode, 0, len(leaves))
	assigned := false
	for _, leaf := range leaves {
		status := StatusLocked
		switch {
		case completed[leaf.ID]:
			status = StatusCompleted
		case !assigned:
			status = StatusInProgress
			assigned = true
		}
		out = append(out, AnnotatedNode{
			ID:          leaf.ID,
			Title:       leaf.Title,
			Description: leaf.Description,
			Status:      status,
		})
	}
	return out
}

// StatusMap indexes annotated lessons by id.
func StatusMap(annotated []AnnotatedNode) map[string]Status {
	m := make(map[string]Status, len(annotated))
	for _, a := range annotated {
		m[a.ID] = a.Status
	}
	return m
}

// BuildHierarchy annotates a nested tree bottom-up. Lessons take their
// status from leafStatus (locked when absent). Internal nodes derive theirs
// from their children only, via DeriveStatus.
func BuildHierarchy(nodes []Node, leafStatus map[string]Status) []AnnotatedNode {
	out := make([]AnnotatedNode, 0, len(nodes))
	for _, n := range nodes {
		a := AnnotatedNode{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
		}
		if n.IsLeaf() {
			a.Status = leafStatus[n.ID]
			if a.Status == "" {
				a.Status = StatusLocked
			}
		} else {
			a.Children = BuildHierarchy(n.Children, leafStatus)
			a.Status = DeriveStatus(a.Children)
		}
		out = append(out, a)
	}
	return out
}

// DeriveStatus computes an internal node's status from its annotated
// children: all completed is completed, any completed or in_progress is
// in_progress, otherwise locked. No children derive to locked.
func DeriveStatus(children []AnnotatedNode) Status {
	if len(children) == 0 {
		return StatusLocked
	}
	allCompleted := true
	started := false
	for _, c := range children {
		switch c.Status {
		case StatusCompleted:
			started = true
		case StatusInProgress:
			started = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}
	switch {
	case allCompleted:
		return StatusCompleted
	case started:
		return StatusInProgress
	default:
		return StatusLocked
	}
}
