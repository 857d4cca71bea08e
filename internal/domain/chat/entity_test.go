package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	userID := uuid.New()
	session := NewSession(userID, "", Preferences{}, time.Hour)

	assert.Equal(t, userID, session.UserID())
	assert.Equal(t, SessionTypeGeneral, session.Type())
	assert.Equal(t, SessionStatusActive, session.Status())
	assert.Equal(t, "en", session.Preferences().Language)
	assert.Equal(t, 0, session.MessageCount())
}

func TestSessionReusability(t *testing.T) {
	session := NewSession(uuid.New(), SessionTypeGeneral, Preferences{}, time.Hour)
	now := time.Now()

	assert.True(t, session.IsReusable(now))
	assert.False(t, session.IsReusable(now.Add(2*time.Hour)), "expired session must not be reusable")

	require.NoError(t, session.Pause())
	assert.False(t, session.IsReusable(now), "paused session must not be reusable")

	require.NoError(t, session.Resume(now))
	assert.True(t, session.IsReusable(now))
}

func TestSessionLifecycleTransitions(t *testing.T) {
	session := NewSession(uuid.New(), SessionTypeGeneral, Preferences{}, time.Hour)

	// Resume is only valid from paused.
	assert.ErrorIs(t, session.Resume(time.Now()), ErrInvalidSessionTransition)

	require.NoError(t, session.Pause())
	assert.ErrorIs(t, session.Pause(), ErrInvalidSessionTransition)

	require.NoError(t, session.Archive())
	assert.Equal(t, SessionStatusArchived, session.Status())
	assert.ErrorIs(t, session.Archive(), ErrInvalidSessionTransition)
}

func TestSessionResumeAfterExpiryFlipsToExpired(t *testing.T) {
	session := NewSession(uuid.New(), SessionTypeGeneral, Preferences{}, time.Hour)
	require.NoError(t, session.Pause())

	err := session.Resume(time.Now().Add(2 * time.Hour))
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, SessionStatusExpired, session.Status())
}

func TestSessionRecordExchange(t *testing.T) {
	session := NewSession(uuid.New(), SessionTypeGeneral, Preferences{}, time.Hour)
	before := session.LastActivityAt()

	session.RecordExchange(before.Add(time.Minute))
	assert.Equal(t, 1, session.MessageCount())
	assert.True(t, session.LastActivityAt().After(before))
}

func TestMessageCompletionIsTerminal(t *testing.T) {
	msg := NewMessage(uuid.New(), RoleAssistant, "")
	require.NoError(t, msg.StartProcessing())

	meta := MessageMetadata{AnswerSource: SourceProvider}
	require.NoError(t, msg.Complete("the answer", meta, 120, 0.36))

	assert.Equal(t, ProcessingCompleted, msg.ProcessingStatus())
	assert.Equal(t, "the answer", msg.Content())
	assert.Equal(t, 120, msg.TokenCount())

	assert.ErrorIs(t, msg.Complete("rewrite", meta, 0, 0), ErrMessageImmutable)
	assert.ErrorIs(t, msg.Fail(meta), ErrMessageImmutable)
	assert.ErrorIs(t, msg.MarkOutOfScope(meta), ErrMessageImmutable)
	assert.ErrorIs(t, msg.AttachActions(nil), ErrMessageImmutable)
	assert.Equal(t, "the answer", msg.Content(), "content must survive rejected writes")
}

func TestMessageStartProcessingOnlyFromPending(t *testing.T) {
	msg := NewMessage(uuid.New(), RoleAssistant, "")
	require.NoError(t, msg.StartProcessing())
	assert.ErrorIs(t, msg.StartProcessing(), ErrInvalidMessageTransition)
}

func TestMessageOutOfScopeIsFirstClass(t *testing.T) {
	msg := NewMessage(uuid.New(), RoleAssistant, "")
	require.NoError(t, msg.StartProcessing())
	require.NoError(t, msg.MarkOutOfScope(MessageMetadata{}))
	assert.Equal(t, ProcessingOutOfScope, msg.ProcessingStatus())
}

func TestMessageActionExecution(t *testing.T) {
	msg := NewMessage(uuid.New(), RoleAssistant, "")
	require.NoError(t, msg.AttachActions([]ActionProposal{
		{Type: "create_diet_plan", Description: "plan it"},
	}))

	assert.ErrorIs(t, msg.MarkActionExecuted(5), ErrActionIndexOutOfRange)
	require.NoError(t, msg.MarkActionExecuted(0))
	assert.True(t, msg.Actions()[0].Executed)
}
