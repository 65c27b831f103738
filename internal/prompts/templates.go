package prompts

// Template IDs. The *_template keys double as the keys of the YAML override file.
const (
	PlanTemplate    = "plan_template"
	ExecuteTemplate = "execute_template"
	ReflectTemplate = "reflect_template"
	SummaryTemplate = "summary_template"

	PlanSystem    = "plan_system"
	ExecuteSystem = "execute_system"
	ReflectSystem = "reflect_system"
)

// NewDefaultRegistry returns a registry holding the built-in agent prompts.
func NewDefaultRegistry() *PromptRegistry {
	r := NewPromptRegistry()

	r.Register(&Prompt{
		ID:      PlanTemplate,
		Version: PromptV1,
		Content: `You are an expert planner. Break the objective below into a short, ordered list of concrete steps.

Objective: {{objective}}

Tools that may help: {{tool_names}}

Relevant notes from earlier runs:
{{memories}}

Return ONLY the steps as a numbered list, one step per line. Do not add commentary.`,
		Description: "Builds the initial step list for an objective",
		Tags:        []string{"template", "planning"},
	})

	r.Register(&Prompt{
		ID:      ExecuteTemplate,
		Version: PromptV1,
		Content: `You are executing one step of a larger plan.

Overall objective: {{input}}
Current step: {{current_step}}

Summary of earlier work: {{summary}}

Recent step history:
{{history}}

Available tools:
{{tools}}

Decide whether a tool is needed for the current step.
- If a tool is needed, set "tool" to its exact name and "args" to its arguments.
- If no tool is needed, set "tool" to null and put your answer in "response".`,
		Description: "Asks the model to pick a tool (or none) for the current step",
		Tags:        []string{"template", "execution"},
	})

	r.Register(&Prompt{
		ID:      ReflectTemplate,
		Version: PromptV1,
		Content: `Review the progress of the current plan.

Plan: {{plan}}
Current step index: {{index}}
Result of the last execution: {{result}}

Choose the next action:
- "retry": run the same step again (transient failure).
- "replan": the plan is not working; provide a new, complete list of steps in "new_plan".
- "next": the step is done well enough; move on.`,
		Description: "Asks the supervisor to retry, replan or continue",
		Tags:        []string{"template", "reflection"},
	})

	r.Register(&Prompt{
		ID:      SummaryTemplate,
		Version: PromptV1,
		Content: `Summarize the following step history into a compact paragraph. Keep every fact, number and result that later steps may need.

{{history}}`,
		Description: "Compresses step history into a rolling summary",
		Tags:        []string{"template", "memory"},
	})

	r.Register(&Prompt{
		ID:          PlanSystem,
		Version:     PromptV1,
		Content:     "You are a helpful AI assistant that plans tasks.",
		Description: "System prompt for planning",
		Tags:        []string{"system"},
	})
	r.Register(&Prompt{
		ID:          ExecuteSystem,
		Version:     PromptV1,
		Content:     "You are a precise agent that executes tasks using tools.",
		Description: "System prompt for step execution",
		Tags:        []string{"system"},
	})
	r.Register(&Prompt{
		ID:          ReflectSystem,
		Version:     PromptV1,
		Content:     "You are a supervisor managing a task plan.",
		Description: "System prompt for reflection",
		Tags:        []string{"system"},
	})

	return r
}
