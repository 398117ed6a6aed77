package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_NoSentinel(t *testing.T) {
	r := ParseReply("A lovely solitaire would suit that budget.")
	assert.Nil(t, r.Directive)
	assert.Equal(t, "A lovely solitaire would suit that budget.", r.Text)
}

func TestParseReply_ImageDirective(t *testing.T) {
	r := ParseReply("Here is my suggestion.\nGENERATE_IMAGE: round diamond engagement ring in white gold")
	require.NotNil(t, r.Directive)
	assert.Equal(t, KindImage, r.Directive.Kind)
	assert.Equal(t, "round diamond engagement ring in white gold", r.Directive.Prompt)
	assert.Equal(t, "Here is my suggestion.", r.Text)
	assert.NotContains(t, r.Text, "GENERATE_IMAGE:")
}

func TestParseReply_VideoDirective(t *testing.T) {
	r := ParseReply("Let me show it spinning.\nGENERATE_VIDEO: rotating sapphire pendant")
	require.NotNil(t, r.Directive)
	assert.Equal(t, KindVideo, r.Directive.Kind)
	assert.Equal(t, "rotating sapphire pendant", r.Directive.Prompt)
}

func TestParseReply_SentinelMidLine_StripsTrailingText(t *testing.T) {
	r := ParseReply("Sure! GENERATE_IMAGE: gold band with milgrain edge\nAnything else?")
	require.NotNil(t, r.Directive)
	assert.Equal(t, "gold band with milgrain edge", r.Directive.Prompt)
	assert.Equal(t, "Sure!\nAnything else?", r.Text)
}

func TestParseReply_MalformedDirective_EmptyPrompt(t *testing.T) {
	r := ParseReply("Working on it.\nGENERATE_IMAGE:")
	require.NotNil(t, r.Directive)
	assert.Equal(t, "", r.Directive.Prompt)
	assert.Equal(t, "Working on it.", r.Text)
}

func TestParseReply_BothSentinels_FirstWins(t *testing.T) {
	r := ParseReply("GENERATE_VIDEO: spinning ring\nGENERATE_IMAGE: still ring")
	require.NotNil(t, r.Directive)
	assert.Equal(t, KindVideo, r.Directive.Kind)
	assert.Equal(t, "spinning ring", r.Directive.Prompt)
	assert.NotContains(t, r.Text, "GENERATE_IMAGE:")
	assert.NotContains(t, r.Text, "GENERATE_VIDEO:")
}

func TestParseReply_RepeatedSentinels_AllStripped(t *testing.T) {
	r := ParseReply("Here you go.\nGENERATE_IMAGE: gold band\nAlso:\nGENERATE_IMAGE: silver band\nGENERATE_VIDEO: spinning band")
	require.NotNil(t, r.Directive)
	assert.Equal(t, KindImage, r.Directive.Kind)
	assert.Equal(t, "gold band", r.Directive.Prompt)
	assert.NotContains(t, r.Text, "GENERATE_IMAGE:")
	assert.NotContains(t, r.Text, "GENERATE_VIDEO:")
	assert.Contains(t, r.Text, "Here you go.")
}

func TestWantsGeneration(t *testing.T) {
	assert.True(t, WantsGeneration("Can you make me a Ring?"))
	assert.True(t, WantsGeneration("show me something in platinum"))
	assert.False(t, WantsGeneration("what are your opening hours?"))
}

func TestWantsVideo(t *testing.T) {
	assert.True(t, WantsVideo("show it rotating please", ""))
	assert.True(t, WantsVideo("", "here is a 360 view"))
	assert.False(t, WantsVideo("a nice necklace", "with an emerald"))
}
