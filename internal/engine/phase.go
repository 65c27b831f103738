package engine

// Phase names the stage of the loop an event or error belongs to.
type Phase string

const (
	PhasePlan     Phase = "plan"
	PhaseExecute  Phase = "execute"
	PhaseCompress Phase = "compress"
	PhaseReflect  Phase = "reflect"
)
