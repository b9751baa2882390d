package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []Status{StatusApproved, StatusBlocked, StatusReview} {
		assert.True(s.Terminal(), string(s))
	}
	for _, s := range []Status{StatusPending, StatusTextScored, StatusAwaitingMedia, StatusMediaScored} {
		assert.False(s.Terminal(), string(s))
	}
}

func TestStatusTransitions(t *testing.T) {
	assert := assert.New(t)

	assert.True(StatusPending.CanTransitionTo(StatusTextScored))
	assert.True(StatusTextScored.CanTransitionTo(StatusAwaitingMedia))
	assert.True(StatusTextScored.CanTransitionTo(StatusMediaScored))
	assert.True(StatusAwaitingMedia.CanTransitionTo(StatusMediaScored))
	assert.True(StatusMediaScored.CanTransitionTo(StatusApproved))
	assert.True(StatusMediaScored.CanTransitionTo(StatusBlocked))
	assert.True(StatusTextScored.CanTransitionTo(StatusReview))

	// no going backwards
	assert.False(StatusTextScored.CanTransitionTo(StatusPending))
	assert.False(StatusMediaScored.CanTransitionTo(StatusTextScored))

	// terminal states accept nothing
	for _, terminal := range []Status{StatusApproved, StatusBlocked, StatusReview} {
		for _, next := range []Status{StatusPending, StatusTextScored, StatusAwaitingMedia, StatusMediaScored, StatusApproved, StatusBlocked, StatusReview} {
			assert.False(terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}
