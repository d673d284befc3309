// Package state provides a small transition-table state machine used for
// room status and round phases.
package state

import (
	"errors"
	"fmt"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Table lists the allowed transitions and their guard conditions. A nil
// condition always passes.
type Table[S comparable] struct {
	transitions map[S]map[S]func() bool
}

func NewTable[S comparable]() *Table[S] {
	return &Table[S]{transitions: make(map[S]map[S]func() bool)}
}

// AddTransition allows from -> to, guarded by condition.
func (t *Table[S]) AddTransition(from, to S, condition func() bool) *Table[S] {
	if _, exists := t.transitions[from]; !exists {
		t.transitions[from] = make(map[S]func() bool)
	}
	t.transitions[from][to] = condition
	return t
}

// Allowed reports whether from -> to is declared and its guard passes.
func (t *Table[S]) Allowed(from, to S) bool {
	conditions, exists := t.transitions[from]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition()
}

// Machine tracks a current state against a Table and runs enter hooks.
type Machine[S comparable] struct {
	current S
	table   *Table[S]
	onEnter map[S][]func(from S)
}

func NewMachine[S comparable](initial S, table *Table[S]) *Machine[S] {
	return &Machine[S]{
		current: initial,
		table:   table,
		onEnter: make(map[S][]func(from S)),
	}
}

func (m *Machine[S]) Current() S {
	return m.current
}

// OnEnter registers a hook run after the machine enters s.
func (m *Machine[S]) OnEnter(s S, hook func(from S)) {
	m.onEnter[s] = append(m.onEnter[s], hook)
}

// ChangeState moves to next if the table allows it.
func (m *Machine[S]) ChangeState(next S) error {
	from := m.current
	if !m.table.Allowed(from, next) {
		return fmt.Errorf("%w: %v -> %v", ErrTransitionNotAllowed, from, next)
	}
	m.current = next
	for _, hook := range m.onEnter[next] {
		hook(from)
	}
	return nil
}
