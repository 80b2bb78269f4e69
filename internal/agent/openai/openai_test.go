package openai

import (
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
)

func TestAvailabilityFollowsConfiguredKey(t *testing.T) {
	// Availability is decided solely by the key handed in at
	// construction, never by ambient process state.
	t.Setenv("OPENAI_API_KEY", "sk-from-env-ignored")
	assert.False(t, New().IsAvailable())

	a := New(func(o *Options) { o.APIKey = "sk-test" })
	assert.True(t, a.IsAvailable())
}

func TestNewFromClientIsAvailable(t *testing.T) {
	client := openaisdk.NewClient()
	a := NewFromClient(&client, func(o *Options) { o.Model = "gpt-4o" })
	assert.True(t, a.IsAvailable())
	assert.Equal(t, "gpt-4o", a.opts.Model)
}
