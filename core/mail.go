package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*.txt templates/email/*.gohtml
var templatesFS embed.FS

const templatesDir = "templates/email"

var (
	templates     tmplCache
	templatesErr  error
	templatesOnce sync.Once
)

type (
	tmplCache struct {
		text map[string]*texttmpl.Template
		html map[string]*htmltmpl.Template
	}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName   string
		Recipient string
		Data      interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// ParseEmailTemplates parses the embedded templates. It is safe to call many times.
func ParseEmailTemplates() error {
	templatesOnce.Do(func() {
		templates, templatesErr = parseTemplates()
	})
	return templatesErr
}

func parseTemplates() (tmplCache, error) {
	cache := tmplCache{
		text: make(map[string]*texttmpl.Template),
		html: make(map[string]*htmltmpl.Template),
	}
	entries, err := templatesFS.ReadDir(templatesDir)
	if err != nil {
		return cache, errors.Wrap(err, "reading templates dir")
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		switch ext {
		case ".txt":
			tmpl, err := texttmpl.ParseFS(templatesFS, path.Join(templatesDir, "_base.txt"), path.Join(templatesDir, fname))
			if err != nil {
				return cache, errors.Wrap(err, "parsing "+fname)
			}
			cache.text[name] = tmpl.Option("missingkey=error")
		case ".gohtml":
			tmpl, err := htmltmpl.ParseFS(templatesFS, path.Join(templatesDir, "_base.gohtml"), path.Join(templatesDir, fname))
			if err != nil {
				return cache, errors.Wrap(err, "parsing "+fname)
			}
			cache.html[name] = tmpl.Option("missingkey=error")
		}
	}
	return cache, nil
}

func (m *EmailMessage) contextData(appName string) ContextData {
	var recipient string
	if len(m.To) > 0 {
		recipient = m.To[0].Name
	}
	return ContextData{AppName: appName, Recipient: recipient, Data: m.TemplateData}
}

// Render fills TextContent and HTMLContent.
func (m *EmailMessage) Render(appName string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	if err := ParseEmailTemplates(); err != nil {
		return err
	}
	data := m.contextData(appName)

	if tmpl, ok := templates.text[m.TemplateName]; ok && m.BodyStr == "" {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering text")
		}
		m.TextContent = buff.String()
	}
	if tmpl, ok := templates.html[m.TemplateName]; ok {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		m.HTMLContent = buff.String()
	}
	if !m.HasContent() {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
