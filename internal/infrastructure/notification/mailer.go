package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"time"

	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
)

// NewMailer 按mailer.driver创建邮件发送器
func NewMailer(cfg config.MailerConfig, logger *slog.Logger) receipt.Mailer {
	if cfg.Driver == "smtp" {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}

// SMTPMailer 通过SMTP发送纯文本邮件
// 服务器支持STARTTLS时自动升级;配置了用户名时使用PLAIN认证
type SMTPMailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

// NewSMTPMailer 创建SMTP发送器
func NewSMTPMailer(cfg config.MailerConfig) *SMTPMailer {
	m := &SMTPMailer{
		addr: cfg.Addr(),
		host: cfg.Host,
		from: cfg.From,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Send 发送邮件,整个会话受ctx的截止时间约束
func (m *SMTPMailer) Send(ctx context.Context, msg receipt.Message) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("连接SMTP服务器失败: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("SMTP握手失败: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("STARTTLS失败: %w", err)
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return fmt.Errorf("SMTP认证失败: %w", err)
			}
		}
	}

	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("MAIL FROM失败: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO失败: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA失败: %w", err)
	}
	if _, err := w.Write(buildMessage(m.from, msg, time.Now())); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("提交邮件失败: %w", err)
	}
	return c.Quit()
}

// buildMessage 组装RFC 5322邮件,标题按RFC 2047编码
func buildMessage(from string, msg receipt.Message, now time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}

// LogMailer 只把邮件写进日志,开发环境使用
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer 创建日志发送器
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg receipt.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "发送邮件(仅记录日志)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
