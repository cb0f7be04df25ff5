package pet

import (
	"fmt"
	"strings"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS & OUTCOMES
// ══════════════════════════════════════════════════════════════════════════════

// Action is a student-triggered pet action.
type Action string

const (
	ActionBuyFood Action = "buy-food"
	ActionFeed    Action = "feed"
)

// IsValid checks the action is known.
func (a Action) IsValid() bool {
	return a == ActionBuyFood || a == ActionFeed
}

// Outcome names the branch a transition took.
type Outcome string

const (
	OutcomeFoodBought         Outcome = "food-bought"
	OutcomeInsufficientPoints Outcome = "insufficient-points"
	OutcomeFed                Outcome = "fed"
	OutcomeLeveledUp          Outcome = "leveled-up"
	OutcomeMaxed              Outcome = "maxed"
	OutcomeStarving           Outcome = "starving"
	OutcomeExhausted          Outcome = "exhausted"
	OutcomePointsChanged      Outcome = "points-changed"
)

// Changed reports whether the outcome altered the pet at all.
func (o Outcome) Changed() bool {
	return o != OutcomeInsufficientPoints
}

// Transition is the result of applying an action.
type Transition struct {
	Pet     *Pet
	Outcome Outcome
	// PreviousStage is the stage before the action ran.
	PreviousStage int
}

// LeveledUp reports whether the transition crossed a stage boundary.
func (t Transition) LeveledUp() bool {
	return t.Pet.Stage > t.PreviousStage
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// All functions below are pure: the input pet is never mutated.
// ══════════════════════════════════════════════════════════════════════════════

// Apply dispatches a student action.
func Apply(p *Pet, action Action, env shared.Env) (Transition, error) {
	switch action {
	case ActionBuyFood:
		return BuyFood(p, env), nil
	case ActionFeed:
		return Feed(p, env), nil
	default:
		return Transition{}, shared.ErrUnknownAction
	}
}

// BuyFood spends one point on one food ration. With fewer than one point it
// is a no-op and the pet is returned unchanged.
func BuyFood(p *Pet, env shared.Env) Transition {
	next := p.Clone()
	if next.Points < FoodPrice {
		return Transition{Pet: next, Outcome: OutcomeInsufficientPoints, PreviousStage: p.Stage}
	}

	next.Points -= FoodPrice
	next.Food++
	next.prependLog(env, -FoodPrice, ReasonBuyFood)

	return Transition{Pet: next, Outcome: OutcomeFoodBought, PreviousStage: p.Stage}
}

// Feed consumes one food and one point for FeedGain progress. Crossing
// MaxProgress levels the pet up once with the remainder discarded; at the
// final stage progress clamps at MaxProgress. An empty pantry costs
// HungerPenalty progress, an empty point balance only leaves a note.
func Feed(p *Pet, env shared.Env) Transition {
	next := p.Clone()
	t := Transition{Pet: next, PreviousStage: p.Stage}

	switch {
	case next.Food > 0 && next.Points > 0:
		next.Food--
		next.Points--
		next.Progress += FeedGain
		next.prependLog(env, -1, ReasonFed)
		t.Outcome = OutcomeFed

		if next.Progress >= MaxProgress {
			if next.Stage < MaxStage {
				next.Stage++
				next.Progress = 0
				next.prependLog(env, 0, fmt.Sprintf(levelUpReasonFmt, next.Age()))
				t.Outcome = OutcomeLeveledUp
			} else {
				next.Progress = MaxProgress
				t.Outcome = OutcomeMaxed
			}
		}

	case next.Food <= 0:
		next.Progress = max(0, next.Progress-HungerPenalty)
		next.prependLog(env, 0, ReasonStarving)
		t.Outcome = OutcomeStarving

	default:
		next.prependLog(env, 0, ReasonExhausted)
		t.Outcome = OutcomeExhausted
	}

	return t
}

// GivePoints applies a teacher award or deduction. Deductions may push the
// balance below zero.
func GivePoints(p *Pet, amount int, reason string, env shared.Env) (Transition, error) {
	if amount == 0 {
		return Transition{}, shared.ErrZeroPoints
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Transition{}, shared.NewDomainError("pet", "GivePoints", shared.ErrEmptyValue, "reason is required")
	}

	next := p.Clone()
	next.Points += amount
	next.prependLog(env, amount, reason)

	return Transition{Pet: next, Outcome: OutcomePointsChanged, PreviousStage: p.Stage}, nil
}

// prependLog adds the newest entry at the head and truncates the tail.
func (p *Pet) prependLog(env shared.Env, amount int, reason string) {
	entry := PointLog{
		ID:        env.ID(),
		Amount:    amount,
		Reason:    reason,
		Timestamp: env.Time(),
	}
	logs := make([]PointLog, 0, min(len(p.Logs)+1, MaxLogs))
	logs = append(logs, entry)
	for _, l := range p.Logs {
		if len(logs) == MaxLogs {
			break
		}
		logs = append(logs, l)
	}
	p.Logs = logs
}
