package downstream

// Strategy selects the Fibonacci/T-shirt/points -> minutes mapping table
// (spec §6 `time_estimate_strategy`). Per design note "Estimate mapping",
// this table is a pure function owned by the Downstream adapter's
// Project: changing it never touches the engine.
type Strategy string

const (
	StrategyFibonacci Strategy = "fibonacci"
	StrategyTShirt    Strategy = "tshirt"
	StrategyLinear    Strategy = "linear_hours"
)

// fibonacciMinutes maps Upstream Fibonacci-scale story points to minutes.
// Fibonacci[2]=60 per spec §8 scenario 1; Fibonacci[5]=240 per scenario 2.
var fibonacciMinutes = map[float64]int{
	1:  30,
	2:  60,
	3:  120,
	5:  240,
	8:  480,
	13: 960,
	21: 1920,
}

// tshirtMinutes maps T-shirt-size point buckets (XS..XL encoded as
// 1..5) to minutes.
var tshirtMinutes = map[float64]int{
	1: 30,  // XS
	2: 90,  // S
	3: 240, // M
	4: 480, // L
	5: 960, // XL
}

// EstimateMapper converts an optional canonical estimate into a
// Downstream task duration in minutes (spec §6 `default_task_duration_-
// mins` is the fallback "when estimate is absent").
type EstimateMapper struct {
	Strategy           Strategy
	DefaultDurationMins int
}

// Minutes maps points to a duration. present=false (estimate absent)
// always yields DefaultDurationMins.
func (m EstimateMapper) Minutes(points float64, present bool) int {
	if !present {
		return m.DefaultDurationMins
	}
	var table map[float64]int
	switch m.Strategy {
	case StrategyFibonacci:
		table = fibonacciMinutes
	case StrategyTShirt:
		table = tshirtMinutes
	case StrategyLinear:
		return int(points * 60)
	default:
		return m.DefaultDurationMins
	}
	if mins, ok := table[points]; ok {
		return mins
	}
	return m.DefaultDurationMins
}
