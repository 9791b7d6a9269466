package bot

// Reconciler materializes thread state on first sight and refreshes the admin
// snapshot on explicit request.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// EnsureThread creates the thread's record if it does not exist yet. Repeat
// calls leave an existing record untouched.
func (r *Reconciler) EnsureThread(thread ThreadDescriptor) (ThreadState, error) {
	return r.store.Ensure(thread.ID, thread.AdminIDs)
}

// RefreshAdmins overwrites the stored admin snapshot with the platform's
// current one, but only when they differ. It reports whether a change was
// persisted. This runs on explicit command, not every poll cycle, so an
// in-flight permission check is never revoked behind the caller's back.
func (r *Reconciler) RefreshAdmins(thread ThreadDescriptor) (bool, error) {
	state, err := r.EnsureThread(thread)
	if err != nil {
		return false, err
	}
	if sameIDSet(state.Admins, thread.AdminIDs) {
		return false, nil
	}
	if _, err := r.store.Mutate(thread.ID, func(s *ThreadState) {
		s.Admins = normalizeIDSet(thread.AdminIDs)
	}); err != nil {
		return false, err
	}
	return true, nil
}
