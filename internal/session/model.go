package session

import (
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
)

// Session is the persisted transcript of one agent run.
type Session struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Objective  string              `json:"objective"`
	Plan       []string            `json:"plan"`
	History    []engine.StepRecord `json:"history"`
	Summary    string              `json:"summary,omitempty"` // Compressed history preceding History
	Response   string              `json:"response"`
	Status     engine.RunStatus    `json:"status"`
	Iterations int                 `json:"iterations"`
	Replans    int                 `json:"replans"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// SessionMeta is a lightweight representation for listing runs.
type SessionMeta struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Status    engine.RunStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// FromRunState captures a run. started is when the run began.
func FromRunState(st *engine.RunState, started time.Time) *Session {
	return &Session{
		ID:         st.ID,
		Objective:  st.Objective,
		Plan:       append([]string(nil), st.Plan...),
		History:    append([]engine.StepRecord(nil), st.History...),
		Summary:    st.Summary,
		Response:   st.FinalResponse(),
		Status:     st.Status,
		Iterations: st.Iterations,
		Replans:    st.Replans,
		CreatedAt:  started,
		UpdatedAt:  time.Now(),
	}
}
