package room

import "tumorboard/pkg/types"

// AddAnnotation inserts an annotation by ID and bumps room activity.
// No dedup and no validation of the shape payload against the shape kind -
// geometry is assumed well-formed by the caller.
// Reports false if the room does not exist.
func (s *Store) AddAnnotation(roomID string, annotation types.Annotation) bool {
	e, exists := s.get(roomID)
	if !exists {
		return false
	}

	now := s.now()
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = now
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}

	a := annotation
	e.annotations[annotation.ID] = &a
	e.lastActivity = now

	s.publish(roomID, &types.Message{
		Kind:       types.MessageKindAnnotationAdd,
		UserID:     annotation.UserID,
		Annotation: &a,
	}, "")
	return true
}

// RemoveAnnotation deletes an annotation by ID. Removing a nonexistent ID
// is a benign no-op; the removal event is only broadcast when something was
// actually deleted.
func (s *Store) RemoveAnnotation(roomID, annotationID string) bool {
	e, exists := s.get(roomID)
	if !exists {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}

	if _, present := e.annotations[annotationID]; !present {
		return false
	}
	delete(e.annotations, annotationID)
	e.lastActivity = s.now()

	s.publish(roomID, &types.Message{
		Kind:         types.MessageKindAnnotationRemove,
		AnnotationID: annotationID,
	}, "")
	return true
}

// Annotations returns all current annotations for the room, no ordering
// guarantee. Unbounded growth for the lifetime of a room is a known,
// accepted limitation.
func (s *Store) Annotations(roomID string) []types.Annotation {
	e, exists := s.get(roomID)
	if !exists {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil
	}

	out := make([]types.Annotation, 0, len(e.annotations))
	for _, a := range e.annotations {
		out = append(out, *a)
	}
	return out
}
