package migration

import (
	"errors"
	"fmt"
)

// State: состояние попытки миграции.
type State int

const (
	StateIdle State = iota
	StateChecked
	StateQuoted
	StateAssembled
	StateSubmitted
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateChecked:
		return "Checked"
	case StateQuoted:
		return "Quoted"
	case StateAssembled:
		return "Assembled"
	case StateSubmitted:
		return "Submitted"
	case StateConfirmed:
		return "Confirmed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Error: отказ попытки. State: последнее достигнутое состояние,
// Err: типизированная причина без изменений.
type Error struct {
	AttemptID string
	State     State
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration %s failed in state %s: %v", e.AttemptID, e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TouchedChain сообщает, что отказ случился при отправке или после неё:
// транзакция могла попасть в сеть.
func (e *Error) TouchedChain() bool {
	return e.State >= StateSubmitted
}

// SafeToRetry сообщает, можно ли повторить миграцию с нуля без риска
// двойного исполнения.
func SafeToRetry(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return !me.TouchedChain()
	}
	return false
}
