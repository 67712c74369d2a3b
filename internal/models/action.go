package models

// ArgSpec describes one argument of an action. Order within ActionSpec.Args
// defines positional interpretation.
type ArgSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// ActionSpec is the declared argument schema of a registered action.
// Immutable after registration.
type ActionSpec struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HelpText    string    `json:"help_text,omitempty"`
	AgentHint   string    `json:"agent_hint,omitempty"`
	Args        []ArgSpec `json:"arguments,omitempty"`
}

// RequiredArgs returns the names of all required arguments in order
func (s *ActionSpec) RequiredArgs() []string {
	var names []string
	for _, a := range s.Args {
		if a.Required {
			names = append(names, a.Name)
		}
	}
	return names
}

// OptionalArgs returns the names of all optional arguments in order
func (s *ActionSpec) OptionalArgs() []string {
	var names []string
	for _, a := range s.Args {
		if !a.Required {
			names = append(names, a.Name)
		}
	}
	return names
}

// Command is the planner-facing projection of an ActionSpec
type Command struct {
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Help             string   `json:"help,omitempty"`
	Hint             string   `json:"hint,omitempty"`
	RequiredParams   []string `json:"required_params,omitempty"`
	OptionalParams   []string `json:"optional_params,omitempty"`
	PositionalParams []string `json:"positional_params,omitempty"`
}

// ToCommand derives the planner projection from a spec
func (s *ActionSpec) ToCommand() Command {
	positional := make([]string, 0, len(s.Args))
	for _, a := range s.Args {
		positional = append(positional, a.Name)
	}
	return Command{
		Name:             s.Name,
		Description:      s.Description,
		Help:             s.HelpText,
		Hint:             s.AgentHint,
		RequiredParams:   s.RequiredArgs(),
		OptionalParams:   s.OptionalArgs(),
		PositionalParams: positional,
	}
}
