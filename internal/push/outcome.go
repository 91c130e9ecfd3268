package push

// OutcomeClass classifies the result of one delivery attempt.
type OutcomeClass int

const (
	// Success: the push service accepted the message.
	Success OutcomeClass = iota
	// TransientFailure: the attempt failed but the endpoint may recover.
	TransientFailure
	// PermanentFailure: the push service confirmed the endpoint is gone.
	PermanentFailure
)

func (c OutcomeClass) String() string {
	switch c {
	case Success:
		return "success"
	case TransientFailure:
		return "transient"
	case PermanentFailure:
		return "permanent"
	default:
		return "unknown"
	}
}

// permanentStatuses is the single policy table mapping push service status
// codes to a permanent outcome. Adding a code here is the only change needed
// to treat another status as fatal for a subscription.
var permanentStatuses = map[int]struct{}{
	404: {}, // endpoint no longer exists
	410: {}, // browser unsubscribed
}

// classifyStatus maps an HTTP status code to an outcome class. Any status not
// explicitly recognised counts as transient.
func classifyStatus(code int) OutcomeClass {
	if code >= 200 && code < 300 {
		return Success
	}
	if _, ok := permanentStatuses[code]; ok {
		return PermanentFailure
	}
	return TransientFailure
}

// Outcome records the result of delivering one message to one subscription.
// Outcomes live only for the duration of a fan-out cycle.
type Outcome struct {
	SubscriptionID string
	Endpoint       string
	Class          OutcomeClass
	StatusCode     int
	Err            error
}

// FanoutSummary aggregates the outcomes of one fan-out cycle.
type FanoutSummary struct {
	Attempted         int `json:"attempted"`
	Succeeded         int `json:"succeeded"`
	TransientFailures int `json:"transient_failures"`
	PermanentFailures int `json:"permanent_failures"`
}

func summarize(outcomes []Outcome) FanoutSummary {
	summary := FanoutSummary{Attempted: len(outcomes)}
	for _, outcome := range outcomes {
		switch outcome.Class {
		case Success:
			summary.Succeeded++
		case PermanentFailure:
			summary.PermanentFailures++
		default:
			summary.TransientFailures++
		}
	}
	return summary
}
