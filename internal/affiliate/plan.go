package affiliate

// Plan lists the role changes needed to move from one snapshot to the next.
type Plan struct {
	ToAdd    Set
	ToRemove Set
}

// Reconcile computes the plan that turns previous into current.
// Users present in both sets need no change.
func Reconcile(previous, current Set) Plan {
	return Plan{
		ToAdd:    current.Difference(previous),
		ToRemove: previous.Difference(current),
	}
}

// IsEmpty reports whether the plan has nothing to apply.
func (p Plan) IsEmpty() bool {
	return p.ToAdd.Len() == 0 && p.ToRemove.Len() == 0
}
