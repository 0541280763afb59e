package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownIntent is returned by Build for a name not in the catalog.
var ErrUnknownIntent = errors.New("unknown prompt intent")

// MissingArgError reports a required argument that was absent or blank.
type MissingArgError struct {
	Intent string
	Arg    string
}

func (e *MissingArgError) Error() string {
	return fmt.Sprintf("prompt %s: %s is required", e.Intent, e.Arg)
}

// Intent describes one catalog entry for listing.
type Intent struct {
	Name     string   `json:"name"`
	Args     []string `json:"args"`
	Optional []string `json:"optional,omitempty"`
}

type entry struct {
	Intent
	build func(args map[string]string) Template
}

var catalog = []entry{
	{
		Intent: Intent{Name: "background", Args: []string{"keywords"}},
		build:  func(a map[string]string) Template { return Background(a["keywords"]) },
	},
	{
		Intent: Intent{Name: "userStory", Args: []string{"role", "action", "benefit"}},
		build:  func(a map[string]string) Template { return UserStory(a["role"], a["action"], a["benefit"]) },
	},
	{
		Intent: Intent{Name: "featureDecompose", Args: []string{"description"}},
		build:  func(a map[string]string) Template { return FeatureDecompose(a["description"]) },
	},
	{
		Intent: Intent{Name: "interactionFlow", Optional: []string{"context"}},
		build:  func(a map[string]string) Template { return InteractionFlow(a["context"]) },
	},
	{
		Intent: Intent{Name: "dataDict", Args: []string{"fields"}},
		build:  func(a map[string]string) Template { return DataDict(a["fields"]) },
	},
	{
		Intent: Intent{Name: "exceptions", Args: []string{"scenario"}},
		build:  func(a map[string]string) Template { return Exceptions(a["scenario"]) },
	},
	{
		Intent: Intent{Name: "acceptance", Args: []string{"features"}},
		build:  func(a map[string]string) Template { return Acceptance(a["features"]) },
	},
}

// Intents lists the catalog in a stable order.
func Intents() []Intent {
	out := make([]Intent, 0, len(catalog))
	for _, e := range catalog {
		in := e.Intent
		in.Args = append([]string(nil), e.Args...)
		in.Optional = append([]string(nil), e.Optional...)
		out = append(out, in)
	}
	return out
}

// Build renders the named intent. Required arguments must be non-blank;
// unknown argument keys are ignored.
func Build(intent string, args map[string]string) (Template, error) {
	name := strings.TrimSpace(intent)
	for _, e := range catalog {
		if e.Name != name {
			continue
		}
		for _, arg := range e.Args {
			if strings.TrimSpace(args[arg]) == "" {
				return Template{}, &MissingArgError{Intent: name, Arg: arg}
			}
		}
		return e.build(args), nil
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
}
