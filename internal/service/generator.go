// internal/service/generator.go
package service

import (
	"fmt"
	"strings"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
)

// GeneratedEmail is one synthetic recipient/subject pair.
type GeneratedEmail struct {
	Recipient string
	Subject   string
}

var defaultSubjectTemplates = []string{
	"Quick question about {topic}",
	"Following up on {topic}",
	"Thoughts on {topic}?",
	"Re: {topic} - next steps",
	"Checking in on {topic}",
}

var subjectTopics = []string{
	"the onboarding flow",
	"next week's sync",
	"the quarterly review",
	"our integration",
	"the pricing update",
	"the beta rollout",
	"the migration plan",
}

var recipientNames = []string{
	"alex", "jordan", "sam", "taylor", "morgan",
	"casey", "riley", "jamie", "quinn", "avery",
}

var recipientDomains = []string{
	"warmup-pool.example.com",
	"seedbox.example.net",
	"inbox-network.example.org",
}

// Generate produces exactly volume recipient/subject pairs for one campaign
// day. Recipients are synthesized from bounded pools; distinctness across
// days is not guaranteed and not needed.
func Generate(settings model.CampaignSettings, volume, day int) ([]GeneratedEmail, error) {
	if volume <= 0 {
		return nil, appErrors.NewConfiguration("volume", "must be positive")
	}

	templates := settings.SubjectTemplates
	if len(templates) == 0 {
		templates = defaultSubjectTemplates
	}
	if len(templates) == 0 {
		return nil, appErrors.NewConfiguration("subject_templates", "none configured and no defaults")
	}

	emails := make([]GeneratedEmail, 0, volume)
	for i := 0; i < volume; i++ {
		name := recipientNames[(day+i)%len(recipientNames)]
		domain := recipientDomains[(day*7+i)%len(recipientDomains)]
		recipient := fmt.Sprintf("%s.%d@%s", name, day*1000+i, domain)

		template := templates[(day+i)%len(templates)]
		subject := RenderTemplate(template, map[string]string{
			"topic": subjectTopics[(day*3+i)%len(subjectTopics)],
			"day":   fmt.Sprintf("%d", day),
		})
		if strings.TrimSpace(subject) == "" {
			return nil, appErrors.NewConfiguration("subject_templates", "rendered an empty subject")
		}

		emails = append(emails, GeneratedEmail{Recipient: recipient, Subject: subject})
	}
	return emails, nil
}

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
