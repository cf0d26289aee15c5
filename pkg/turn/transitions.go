package turn

import "slices"

type effect int

const (
	effectIgnore effect = iota
	effectListen
	effectThink
	effectRespond
	effectComplete
	effectFail
	effectReset
)

// transitionDef is one guarded row: trigger accepted from any of From, producing Effect.
type transitionDef struct {
	Trigger Trigger
	From    []State
	Effect  effect
}

var activeStates = []State{StateListening, StateThinking, StateResponding}

var transitionTable = []transitionDef{
	{Trigger: TriggerWakeWord, From: []State{StateIdle}, Effect: effectListen},
	{Trigger: TriggerButtonTapped, From: []State{StateIdle}, Effect: effectListen},
	{Trigger: TriggerButtonTapped, From: []State{StateResponding}, Effect: effectComplete},
	{Trigger: TriggerRequestSubmitted, From: []State{StateListening}, Effect: effectThink},
	{Trigger: TriggerResponseReady, From: []State{StateThinking}, Effect: effectRespond},
	{Trigger: TriggerResponseComplete, From: []State{StateResponding}, Effect: effectComplete},
	{Trigger: TriggerNetworkError, From: activeStates, Effect: effectFail},
	{Trigger: TriggerNetworkError, From: []State{StateIdle, StateError}, Effect: effectIgnore},
	{Trigger: TriggerTimeout, From: activeStates, Effect: effectFail},
	{Trigger: TriggerTimeout, From: []State{StateIdle, StateError}, Effect: effectIgnore},
	{Trigger: TriggerReset, From: States, Effect: effectReset},
}

func lookupTransition(trigger Trigger, from State) (effect, bool) {
	for _, def := range transitionTable {
		if def.Trigger == trigger && slices.Contains(def.From, from) {
			return def.Effect, true
		}
	}
	return effectIgnore, false
}

// Accepts reports whether the trigger passes its guard in the given state.
// Triggers that are silently ignored in a state are still accepted.
func Accepts(trigger Trigger, state State) bool {
	_, ok := lookupTransition(trigger, state)
	return ok
}
