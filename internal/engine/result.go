package engine

// StepResult is the outcome of executing one step. Text is what gets recorded
// in history; Failed is set by the executor, never inferred from Text.
type StepResult struct {
	Step   string
	Text   string
	Tool   string
	Failed bool
	Err    error
}

// StepOK is a successful outcome.
func StepOK(step, text string) StepResult {
	return StepResult{Step: step, Text: text}
}

// StepFailed is a failed outcome. Its text is "Error: " followed by the cause.
func StepFailed(step string, err error) StepResult {
	return StepResult{Step: step, Text: "Error: " + err.Error(), Failed: true, Err: err}
}
