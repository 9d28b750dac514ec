package notification

import (
	"bytes"
	"html/template"

	"gopkg.in/gomail.v2"
)

// I_Mailer tells a recipient about a new friend request.
type I_Mailer interface {
	SendFriendRequest(to, fromName string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

var requestTemplate = template.Must(template.New("request").Parse(
	`<p>Hi,</p><p><b>{{.From}}</b> wants to be your friend on Chatey.</p><p>Open the app to accept or reject the request.</p>`))

type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
	}
}

func (me *SMTPMailer) SendFriendRequest(to, fromName string) error {
	var body bytes.Buffer
	if err := requestTemplate.Execute(&body, struct{ From string }{fromName}); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", me.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "New friend request")
	msg.SetBody("text/plain", fromName+" wants to be your friend on Chatey.")
	msg.AddAlternative("text/html", body.String())

	return me.dialer.DialAndSend(msg)
}

// NopMailer is used when no SMTP server is configured.
type NopMailer struct{}

func (NopMailer) SendFriendRequest(to, fromName string) error {
	return nil
}
