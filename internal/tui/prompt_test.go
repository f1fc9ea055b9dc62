package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldPromptOffInCI(t *testing.T) {
	for _, env := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, "true")
			assert.False(t, ShouldPrompt())
		})
	}
}

func TestStringAccessible(t *testing.T) {
	var out bytes.Buffer
	p := &Prompter{In: strings.NewReader("  Storefront  \n"), Out: &out, Accessible: true}

	got, err := p.String(Prompt{Message: "Project name", Required: true})
	require.NoError(t, err)
	assert.Equal(t, "Storefront", got)
	assert.Contains(t, out.String(), "Project name")
}

func TestSelectWithoutOptions(t *testing.T) {
	_, err := Select[int](&Prompter{Accessible: true}, "Project type", nil)
	assert.EqualError(t, err, "no options provided")
}
