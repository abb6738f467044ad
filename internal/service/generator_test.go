package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

func TestGenerateExactVolume(t *testing.T) {
	emails, err := service.Generate(model.CampaignSettings{}, 17, 3)
	require.NoError(t, err)
	require.Len(t, emails, 17)

	for _, e := range emails {
		assert.Contains(t, e.Recipient, "@")
		assert.NotEmpty(t, strings.TrimSpace(e.Subject))
		assert.NotContains(t, e.Subject, "{topic}", "placeholders must be rendered")
	}
}

func TestGenerateUsesConfiguredTemplates(t *testing.T) {
	settings := model.CampaignSettings{
		SubjectTemplates: []string{"Warm hello about {topic}"},
	}

	emails, err := service.Generate(settings, 4, 1)
	require.NoError(t, err)
	for _, e := range emails {
		assert.True(t, strings.HasPrefix(e.Subject, "Warm hello about "))
	}
}

func TestGenerateRejectsZeroVolume(t *testing.T) {
	_, err := service.Generate(model.CampaignSettings{}, 0, 1)
	assert.True(t, appErrors.IsConfiguration(err))
}

func TestGenerateEmptyTemplateFails(t *testing.T) {
	settings := model.CampaignSettings{SubjectTemplates: []string{"   "}}
	_, err := service.Generate(settings, 1, 1)
	assert.True(t, appErrors.IsConfiguration(err))
}

func TestRenderTemplate(t *testing.T) {
	out := service.RenderTemplate("Hi {name}, about {topic}", map[string]string{
		"name":  "Alex",
		"topic": "the rollout",
	})
	assert.Equal(t, "Hi Alex, about the rollout", out)
}
