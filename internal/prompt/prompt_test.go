package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/internal/conversation"
	"secondbrain/internal/knowledge"
	"secondbrain/internal/persona"
)

func ev(content string) knowledge.Evidence {
	return knowledge.Evidence{Content: content, Metadata: knowledge.Metadata{SourceID: "s1"}}
}

func TestAssemble_Empty(t *testing.T) {
	assert.Equal(t, "None", Assemble(nil))
	assert.Equal(t, "None", Assemble([]knowledge.Evidence{}))
}

func TestAssemble_JoinsWithBlankLine(t *testing.T) {
	got := Assemble([]knowledge.Evidence{ev("alpha"), ev("beta")})
	assert.Equal(t, "alpha\n\nbeta", got)
}

func TestAssemble_DedupByContentFirstSeenOrder(t *testing.T) {
	got := Assemble([]knowledge.Evidence{ev("alpha"), ev("beta"), ev("alpha")})
	assert.Equal(t, "alpha\n\nbeta", got)

	// Idempotent dedup: [e, e] assembles to the same text as [e].
	assert.Equal(t, Assemble([]knowledge.Evidence{ev("x")}),
		Assemble([]knowledge.Evidence{ev("x"), ev("x")}))
}

func TestAssemble_DifferentMetadataSameContentIsDuplicate(t *testing.T) {
	a := knowledge.Evidence{Content: "same", Metadata: knowledge.Metadata{SourceID: "s1"}}
	b := knowledge.Evidence{Content: "same", Metadata: knowledge.Metadata{SourceID: "s2"}}
	assert.Equal(t, "same", Assemble([]knowledge.Evidence{a, b}))
}

func TestFormatHistory_Empty(t *testing.T) {
	assert.Equal(t, "None", FormatHistory(nil))
}

func TestFormatHistory_Transcript(t *testing.T) {
	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "My name is Tim."},
		{Role: conversation.RoleAssistant, Content: "Nice to meet you, Tim."},
	}
	assert.Equal(t, "User: My name is Tim.\nAssistant: Nice to meet you, Tim.", FormatHistory(history))
}

func TestFormatHistory_SkipsUnknownRoles(t *testing.T) {
	history := []conversation.Message{
		{Role: "system", Content: "ignored"},
	}
	assert.Equal(t, "None", FormatHistory(history))
}

func TestBuild_SubstitutesAllPlaceholders(t *testing.T) {
	p := persona.Persona{
		ID:       "test",
		Template: "C={retrieved_context} H={history} Q={user_query}",
	}
	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "hi"},
	}

	got, err := Build(p, "ctx", history, "what?")
	require.NoError(t, err)
	assert.Equal(t, "C=ctx H=User: hi Q=what?", got)
}

func TestBuild_EmptyContextBecomesNone(t *testing.T) {
	p := persona.Persona{ID: "test", Template: "{retrieved_context}|{history}|{user_query}"}

	got, err := Build(p, "", nil, "q")
	require.NoError(t, err)
	assert.Equal(t, "None|None|q", got)
}

func TestBuild_RejectsUnrecognizedPlaceholder(t *testing.T) {
	p := persona.Persona{ID: "bad", Template: "{user_query} and {secret_sauce}"}

	_, err := Build(p, "ctx", nil, "q")
	require.ErrorIs(t, err, persona.ErrInvalidTemplate)
}

func TestBuild_BuiltinAssistantPersona(t *testing.T) {
	reg, err := persona.NewRegistry()
	require.NoError(t, err)

	got, err := Build(reg.Get("assistant"), "", nil, "What is machine learning?")
	require.NoError(t, err)
	assert.Contains(t, got, "Context to use for answering:\nNone")
	assert.Contains(t, got, "Message history:\nNone")
	assert.Contains(t, got, "Question:\nWhat is machine learning?")
	assert.NotContains(t, got, "{retrieved_context}")
	assert.NotContains(t, got, "{history}")
	assert.NotContains(t, got, "{user_query}")
}
