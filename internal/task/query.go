package task

// QueryService answers status and result lookups. It only reads the Store
// and never waits for a task to progress.
type QueryService struct {
	store *Store
}

// NewQueryService creates a QueryService backed by store.
func NewQueryService(store *Store) *QueryService {
	return &QueryService{store: store}
}

// GetStatus returns a copy of one record of the caller's session.
func (q *QueryService) GetStatus(token, taskID string) (Record, error) {
	return q.store.Snapshot(token, taskID)
}

// GetAllStatus returns copies of every record of the caller's session. An
// unknown session yields an empty map.
func (q *QueryService) GetAllStatus(token string) map[string]Record {
	return q.store.SnapshotAll(token)
}

// GetResult returns the result of a COMPLETED task. Any other status,
// including ERROR, yields a *NotCompletedError carrying that status.
func (q *QueryService) GetResult(token, taskID string) (any, error) {
	rec, err := q.store.Snapshot(token, taskID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusCompleted {
		return nil, &NotCompletedError{Status: rec.Status}
	}
	return rec.Result, nil
}
