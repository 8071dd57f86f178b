// internal/monitor/listener.go
package monitor

import (
	"fmt"

	"github.com/tamzrod/modem-monitor/internal/action"
)

// StageListener runs an ordered list of actions for one stage.
type StageListener struct {
	Code  int
	Name  string
	kinds []action.Kind
}

// Add appends an action kind.
func (l *StageListener) Add(kind action.Kind) *StageListener {
	l.kinds = append(l.kinds, kind)
	return l
}

func (l *StageListener) Kinds() []action.Kind {
	out := make([]action.Kind, len(l.kinds))
	copy(out, l.kinds)
	return out
}

// Execute runs every action in order and stops at the first error.
// When all complete the modem moves to its next stage; an action whose
// precondition suppressed the write still counts as complete.
func (l *StageListener) Execute(env action.Env) error {
	for _, kind := range l.kinds {
		a, err := action.New(kind, env)
		if err != nil {
			return fmt.Errorf("listener %d: %w", l.Code, err)
		}
		if err := action.Execute(a); err != nil {
			return fmt.Errorf("listener %d: %w", l.Code, err)
		}
	}

	env.Modem.AdvanceStage()
	return nil
}
