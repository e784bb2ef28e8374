package checkout

type Status string

const (
	StatusIdle              Status = "IDLE"
	StatusValidating        Status = "VALIDATING"
	StatusRevalidatingStock Status = "REVALIDATING_STOCK"
	StatusConfirming        Status = "CONFIRMING_PAYMENT"
	StatusSucceeded         Status = "SUCCEEDED"
)

// legalTransitions is the submission state machine: any in-flight stage can
// fall back to Idle on failure, and only Confirming can reach Succeeded.
var legalTransitions = map[Status][]Status{
	StatusIdle:              {StatusValidating},
	StatusValidating:        {StatusIdle, StatusRevalidatingStock},
	StatusRevalidatingStock: {StatusIdle, StatusConfirming},
	StatusConfirming:        {StatusIdle, StatusSucceeded},
	StatusSucceeded:         {},
}

func CanTransitionTo(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}
