// Package rl contains an epsilon-greedy Q-learning agent that learns
// ranking-weight adjustments from claim feedback. The agent observes whether
// users accepted results at different score levels and builds preferences for
// nudging the vector/keyword balance. Its output is advisory: the live
// scorer never consults it, operators read the learned table offline.
package rl

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
)

// Action is a proposed adjustment to the vector weight.
type Action int

const (
	ActionDecrease Action = iota
	ActionKeep
	ActionIncrease
	numActions
)

func (a Action) String() string {
	switch a {
	case ActionDecrease:
		return "decrease"
	case ActionKeep:
		return "keep"
	case ActionIncrease:
		return "increase"
	default:
		return "unknown"
	}
}

// State discretizes one search outcome: whether the clicked result matched
// the query category, and which 20-point band its final score fell in.
type State struct {
	CategoryMatched bool `json:"category_matched"`
	ScoreBand       int  `json:"score_band"` // 0-4, final score / 20 capped
}

// StateFor buckets a scored result into a state.
func StateFor(categoryMatched bool, finalScorePct float64) State {
	band := int(finalScorePct / 20)
	if band > 4 {
		band = 4
	}
	if band < 0 {
		band = 0
	}
	return State{CategoryMatched: categoryMatched, ScoreBand: band}
}

const (
	alpha   = 0.1 // learning rate
	gamma   = 0.9 // discount
	epsilon = 0.1 // exploration rate
)

// Agent is a tabular Q-learning agent. Safe for concurrent use.
type Agent struct {
	mu        sync.Mutex
	q         map[State][numActions]float64
	path      string
	saveEvery int
	updates   int
	rng       *rand.Rand
}

// qEntry is the persisted form; struct-keyed maps do not marshal to JSON.
type qEntry struct {
	State  State               `json:"state"`
	Values [numActions]float64 `json:"values"`
}

// NewAgent creates an agent persisting its Q-table to path every saveEvery
// updates. An existing table at path is loaded; a missing or unreadable one
// starts the agent empty.
func NewAgent(path string, saveEvery int, seed int64) *Agent {
	if saveEvery <= 0 {
		saveEvery = 20
	}
	a := &Agent{
		q:         make(map[State][numActions]float64),
		path:      path,
		saveEvery: saveEvery,
		rng:       rand.New(rand.NewSource(seed)),
	}
	a.load()
	return a
}

// ChooseAction returns the epsilon-greedy action for state.
func (a *Agent) ChooseAction(state State) Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng.Float64() < epsilon {
		return Action(a.rng.Intn(int(numActions)))
	}
	return a.bestAction(state)
}

func (a *Agent) bestAction(state State) Action {
	values := a.q[state]
	best := ActionKeep
	bestValue := values[ActionKeep]
	for act := ActionDecrease; act < numActions; act++ {
		if values[act] > bestValue {
			best = act
			bestValue = values[act]
		}
	}
	return best
}

// Observe applies one feedback signal: reward +1 when the user accepted the
// result, -1 otherwise. The episode is single-step, so the next state equals
// the current one for the bootstrap term.
func (a *Agent) Observe(state State, action Action, accepted bool) {
	reward := -1.0
	if accepted {
		reward = 1.0
	}
	a.mu.Lock()
	values := a.q[state]
	maxNext := values[a.bestAction(state)]
	values[action] += alpha * (reward + gamma*maxNext - values[action])
	a.q[state] = values
	a.updates++
	shouldSave := a.path != "" && a.updates%a.saveEvery == 0
	a.mu.Unlock()

	if shouldSave {
		_ = a.Save()
	}
}

// QValues returns a copy of the action values for state.
func (a *Agent) QValues(state State) [numActions]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.q[state]
}

// Updates returns the number of feedback signals applied.
func (a *Agent) Updates() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates
}

// Save writes the Q-table to the configured path.
func (a *Agent) Save() error {
	a.mu.Lock()
	entries := make([]qEntry, 0, len(a.q))
	for state, values := range a.q {
		entries = append(entries, qEntry{State: state, Values: values})
	}
	path := a.path
	a.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create qtable dir: %w", err)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal qtable: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write qtable: %w", err)
	}
	return os.Rename(tmp, path)
}

func (a *Agent) load() {
	if a.path == "" {
		return
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		return
	}
	var entries []qEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	for _, e := range entries {
		a.q[e.State] = e.Values
	}
}
