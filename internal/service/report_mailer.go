package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"sort"
	"strings"

	"dictation/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// emailSender is the part of the SES client the mailer uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// ReportMailer emails a child's progress summary via Amazon SES.
// Without a sender address it is disabled and sends nothing.
type ReportMailer struct {
	client    emailSender
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Dictation progress for {{.Child}}</h2>
	{{range .Languages}}
	<h3>{{.Language}}</h3>
	<p>Attempted: {{.Attempted}} &middot; Correct: {{.Correct}} &middot; Accuracy: {{.AccuracyPercent}}% &middot; Allowance: {{.RewardLabel}}</p>
	{{if .RecentHistory}}<ul>{{range .RecentHistory}}
		<li>{{.Timestamp.Format "2006-01-02 15:04"}} [{{.Grade}}] {{.Item}} &rarr; {{.Input}} {{if .Correct}}&#10004;{{else}}&#10008;{{end}}</li>{{end}}
	</ul>{{end}}
	{{end}}
</body>
</html>`))

// NewReportMailer creates a new report mailer
func NewReportMailer(ctx context.Context, awsRegion, fromEmail, fromName string, debug bool) (*ReportMailer, error) {
	if fromEmail == "" {
		log.Println("Report mailer disabled: SES_FROM_EMAIL not configured")
		return &ReportMailer{debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing report mailer: region=%s from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Report mailer enabled: from=%s, region=%s", fromEmail, awsRegion)

	return newReportMailer(sesv2.NewFromConfig(cfg), fromEmail, fromName, debug), nil
}

func newReportMailer(client emailSender, fromEmail, fromName string, debug bool) *ReportMailer {
	return &ReportMailer{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
	}
}

// IsEnabled returns whether the mailer sends anything
func (m *ReportMailer) IsEnabled() bool {
	return m.enabled
}

// SendProgressReport mails the summary to toEmail. A disabled mailer logs and returns nil.
func (m *ReportMailer) SendProgressReport(ctx context.Context, toEmail string, summary models.ChildSummary) error {
	if !m.enabled {
		log.Printf("Skipping report send (mailer disabled): %s to %s", summary.Child, toEmail)
		return nil
	}

	htmlBody, textBody, err := renderReport(summary)
	if err != nil {
		return err
	}

	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}
	subject := fmt.Sprintf("Dictation progress for %s", summary.Child)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send report to %s: %w", toEmail, err)
	}

	if m.debug && result != nil && result.MessageId != nil {
		log.Printf("[DEBUG] Report message ID: %s", *result.MessageId)
	}
	log.Printf("Report sent: child=%s to=%s", summary.Child, toEmail)
	return nil
}

func renderReport(summary models.ChildSummary) (string, string, error) {
	languages := orderedLanguages(summary)

	var html bytes.Buffer
	data := struct {
		Child     string
		Languages []models.LanguageSummary
	}{Child: summary.Child, Languages: languages}
	if err := reportTemplate.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to render report: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Dictation progress for %s\n", summary.Child)
	for _, view := range languages {
		fmt.Fprintf(&text, "\n[%s] attempted %d, correct %d, accuracy %d%%, allowance %s\n",
			view.Language, view.Attempted, view.Correct, view.AccuracyPercent, view.RewardLabel)
	}

	return html.String(), text.String(), nil
}

// orderedLanguages lists the summary's languages in display order. Entries
// missing from summary.Languages are appended alphabetically.
func orderedLanguages(summary models.ChildSummary) []models.LanguageSummary {
	languages := make([]models.LanguageSummary, 0, len(summary.PerLanguage))
	listed := make(map[string]bool, len(summary.Languages))
	for _, code := range summary.Languages {
		if view, ok := summary.PerLanguage[code]; ok && !listed[code] {
			languages = append(languages, view)
			listed[code] = true
		}
	}

	var rest []string
	for code := range summary.PerLanguage {
		if !listed[code] {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	for _, code := range rest {
		languages = append(languages, summary.PerLanguage[code])
	}
	return languages
}
