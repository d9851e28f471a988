package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/notify"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// BuildEmailSender prefers SendGrid, falls back to SES and finally to a stub
// that only logs. The returned string names the provider.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil && cfg.SendGridAPIKey != "" {
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender, "sendgrid"
		}
	}
	if cfg != nil && cfg.SESFromEmail != "" && awsCfg != nil {
		if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender, "ses"
		}
	}
	logger.Warn("no email provider configured; confirmations will only be logged")
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildSMSSender returns Twilio when credentials are present and a logging
// stub otherwise.
func BuildSMSSender(cfg *appconfig.Config, logger *logging.Logger) (notify.SMSSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil {
		if sender := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger); sender != nil {
			return sender, "twilio"
		}
	}
	logger.Warn("twilio not configured; SMS confirmations will only be logged")
	return notify.NewStubSMSSender(logger), "stub"
}

// BuildDispatcher wires both confirmation channels.
func BuildDispatcher(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *notify.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	email, emailProvider := BuildEmailSender(cfg, awsCfg, logger)
	sms, smsProvider := BuildSMSSender(cfg, logger)
	logger.Info("confirmation channels configured", "email", emailProvider, "sms", smsProvider)
	return notify.NewDispatcher(email, sms, logger)
}
