package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService sends notification emails via Amazon SES. When no sender
// address is configured it runs disabled and silently skips every send, so
// local development needs no AWS credentials.
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendConnectionInvite notifies a student that a teacher wants to follow
// their progress
func (s *EmailService) SendConnectionInvite(ctx context.Context, toEmail, studentName, teacherName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): connection invite to %s", toEmail)
		return nil
	}

	acceptLink := fmt.Sprintf("%s/connections", s.appBaseURL)
	subject := fmt.Sprintf("%s wants to follow your progress on QuestAcademy", teacherName)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>New connection request</h2>
		<p>Hi %s,</p>
		<p><strong>%s</strong> has asked to follow your learning progress on QuestAcademy.</p>
		<p>If you accept, they will be able to see your completed lessons, exam scores and achievements.</p>
		<p><a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Review request</a></p>
		<p style="font-size: 12px; color: #666;">If you don't recognise this person, decline the request.</p>
	</div>
</body>
</html>
`, studentName, teacherName, acceptLink)

	textBody := fmt.Sprintf(`Hi %s,

%s has asked to follow your learning progress on QuestAcademy.

If you accept, they will be able to see your completed lessons, exam scores and achievements.

Review the request here:
%s

If you don't recognise this person, decline the request.
`, studentName, teacherName, acceptLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to QuestAcademy!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Welcome to QuestAcademy!</h2>
		<p>Hi %s,</p>
		<p>Your account is ready. Complete lessons to earn tokens and XP, take exams to test yourself, and unlock achievements as you go.</p>
		<p><a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Start learning</a></p>
	</div>
</body>
</html>
`, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Your QuestAcademy account is ready. Complete lessons to earn tokens and XP, take exams to test yourself, and unlock achievements as you go.

%s
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends a multipart email via SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
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

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent: to=%s subject=%q", toEmail, subject)
	return nil
}
