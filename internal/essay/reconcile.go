package essay

// Anchor rebasing after a committed buffer edit. Edits are sequential under
// the buffer's version check, so each reconciliation sees a single
// delete-range or insert-at displacement and rewrites every other live
// anchor for the same buffer.
//
// Partial-overlap policy for deletions: a bound inside the deleted range
// clips to the deletion start; a bound beyond it shifts left by the deleted
// length. The surviving annotation shrinks rather than erroring out.

// annotationSet holds the live annotations for one buffer, excluding the
// proposal consumed by the triggering edit.
type annotationSet struct {
	comments       []Comment
	strikethroughs []Strikethrough
	additions      []Addition
}

// reconciliation is the rewritten annotation set plus the proposals whose
// anchored content no longer exists.
type reconciliation struct {
	comments              []Comment
	strikethroughs        []Strikethrough
	additions             []Addition
	droppedStrikethroughs []string
	droppedAdditions      []string
}

// shiftSpanAfterDelete rebases the half-open range [start, end) across a
// deletion of [delStart, delEnd). erased reports that the range sat fully
// inside the deleted region.
func shiftSpanAfterDelete(start, end, delStart, delEnd int) (newStart, newEnd int, erased bool) {
	length := delEnd - delStart
	switch {
	case start >= delEnd:
		return start - length, end - length, false
	case end <= delStart:
		return start, end, false
	case start >= delStart && end <= delEnd:
		return delStart, delStart, true
	}

	newStart = start
	if start > delStart {
		newStart = delStart
	}
	if end > delEnd {
		newEnd = end - length
	} else {
		newEnd = delStart
	}
	return newStart, newEnd, false
}

// shiftPointAfterDelete rebases an insertion point across a deletion.
// erased reports that the point sat inside the deleted region.
func shiftPointAfterDelete(point, delStart, delEnd int) (int, bool) {
	if point >= delEnd {
		return point - (delEnd - delStart), false
	}
	if point < delStart {
		return point, false
	}
	return delStart, true
}

// shiftSpanAfterInsert rebases the half-open range [start, end) across an
// insertion of length runes at pos. An insertion landing inside the range
// grows the range to include it.
func shiftSpanAfterInsert(start, end, pos, length int) (int, int) {
	if start >= pos {
		start += length
	}
	if end >= pos {
		end += length
	}
	return start, end
}

// shiftPointAfterInsert rebases an insertion point across an insertion.
func shiftPointAfterInsert(point, pos, length int) int {
	if point >= pos {
		return point + length
	}
	return point
}

// reconcileAfterDelete rewrites every annotation in the set for a committed
// deleteRange(delStart, delEnd). Comments whose anchored content was fully
// deleted are resolved with anchors frozen at the deletion point; proposals
// in the same position are dropped as moot.
func reconcileAfterDelete(set annotationSet, delStart, delEnd int) reconciliation {
	result := reconciliation{
		comments:       make([]Comment, 0, len(set.comments)),
		strikethroughs: make([]Strikethrough, 0, len(set.strikethroughs)),
		additions:      make([]Addition, 0, len(set.additions)),
	}

	for _, comment := range set.comments {
		start, end, erased := shiftSpanAfterDelete(comment.AnchorStart, comment.AnchorEnd, delStart, delEnd)
		comment.AnchorStart = start
		comment.AnchorEnd = end
		if erased {
			comment.Resolved = true
		}
		result.comments = append(result.comments, comment)
	}

	for _, strike := range set.strikethroughs {
		start, end, erased := shiftSpanAfterDelete(strike.AnchorStart, strike.AnchorEnd, delStart, delEnd)
		if erased {
			result.droppedStrikethroughs = append(result.droppedStrikethroughs, strike.StrikethroughID)
			continue
		}
		strike.AnchorStart = start
		strike.AnchorEnd = end
		result.strikethroughs = append(result.strikethroughs, strike)
	}

	for _, addition := range set.additions {
		point, erased := shiftPointAfterDelete(addition.AnchorStart, delStart, delEnd)
		if erased {
			result.droppedAdditions = append(result.droppedAdditions, addition.AdditionID)
			continue
		}
		addition.AnchorStart = point
		result.additions = append(result.additions, addition)
	}

	return result
}

// reconcileAfterInsert rewrites every annotation in the set for a committed
// insertAt(pos, text) of length runes. Insertions never invalidate anchors.
func reconcileAfterInsert(set annotationSet, pos, length int) reconciliation {
	result := reconciliation{
		comments:       make([]Comment, 0, len(set.comments)),
		strikethroughs: make([]Strikethrough, 0, len(set.strikethroughs)),
		additions:      make([]Addition, 0, len(set.additions)),
	}

	for _, comment := range set.comments {
		comment.AnchorStart, comment.AnchorEnd = shiftSpanAfterInsert(comment.AnchorStart, comment.AnchorEnd, pos, length)
		result.comments = append(result.comments, comment)
	}
	for _, strike := range set.strikethroughs {
		strike.AnchorStart, strike.AnchorEnd = shiftSpanAfterInsert(strike.AnchorStart, strike.AnchorEnd, pos, length)
		result.strikethroughs = append(result.strikethroughs, strike)
	}
	for _, addition := range set.additions {
		addition.AnchorStart = shiftPointAfterInsert(addition.AnchorStart, pos, length)
		result.additions = append(result.additions, addition)
	}

	return result
}
