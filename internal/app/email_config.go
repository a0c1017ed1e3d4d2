package app

import "github.com/homelearnhq/homelearn/pkg/mail"

// SMTPSettings projects the email section of the configuration onto the mail
// package's settings type.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	smtp := c.SMTP
	return mail.SMTPSettings{
		Enabled:  smtp.Enabled,
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
		UseTLS:   smtp.UseTLS,
		Timeout:  smtp.Timeout,
	}
}
