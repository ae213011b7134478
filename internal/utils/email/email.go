package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender emails ledger notifications via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

// TransactionCommitted sends a notification for a newly committed transaction
func (s *Sender) TransactionCommitted(txn *models.Transaction) error {
	subject := fmt.Sprintf("Transaction %d: %s", txn.ID, txn.Kind)
	body := fmt.Sprintf("A %s of %s was recorded.\n", txn.Kind, models.FormatAmount(txn.Amount))
	return s.deliver(subject, body+describe(txn))
}

// TransactionDissolved sends a notification for a reversed transaction
func (s *Sender) TransactionDissolved(txn *models.Transaction) error {
	subject := fmt.Sprintf("Transaction %d dissolved", txn.ID)
	body := fmt.Sprintf("The %s of %s recorded at %s was reversed and removed from the ledger.\n",
		txn.Kind, models.FormatAmount(txn.Amount), txn.Timestamp.Format(time.RFC3339))
	return s.deliver(subject, body+describe(txn))
}

func (s *Sender) deliver(subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}
	e.Subject = subject
	e.Text = []byte(body + "\nBest regards,\nBank Ledger")

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send %q to %s: %v", subject, s.cfg.NotifyEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, subject)
	return nil
}

func describe(txn *models.Transaction) string {
	body := fmt.Sprintf("Transaction time: %s\n", txn.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if txn.PayerID != nil {
		body += fmt.Sprintf("Payer account: %d\n", *txn.PayerID)
	}
	if txn.ReceiverID != nil {
		body += fmt.Sprintf("Receiver account: %d\n", *txn.ReceiverID)
	}
	return body
}
