package template

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/errs"
	"gopkg.in/yaml.v2"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

type templateConfig struct {
	Subject string            `yaml:"subject"`
	Body    string            `yaml:"body"`
	SMS     map[string]string `yaml:"sms"`
}

type entry struct {
	subject *template.Template
	body    *template.Template
	sms     map[string]string
}

// Catalog holds every notification template the platform can send.
type Catalog struct {
	entries map[domain.Template]entry
}

// DefaultCatalog loads the embedded templates.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultTemplates)
}

func LoadCatalog(raw []byte) (*Catalog, error) {
	var cfg struct {
		Templates map[string]templateConfig `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	c := &Catalog{entries: make(map[domain.Template]entry, len(cfg.Templates))}
	for name, tc := range cfg.Templates {
		t, err := domain.ParseTemplate(name)
		if err != nil {
			return nil, err
		}
		subject, err := template.New(name + ".subject").Option("missingkey=zero").Parse(tc.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=zero").Parse(tc.Body)
		if err != nil {
			return nil, fmt.Errorf("template %s body: %w", name, err)
		}
		c.entries[t] = entry{subject: subject, body: body, sms: tc.SMS}
	}
	return c, nil
}

func (c *Catalog) Has(t domain.Template) bool {
	_, ok := c.entries[t]
	return ok
}

func (c *Catalog) Render(t domain.Template, data map[string]string) (Message, error) {
	e, ok := c.entries[t]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", errs.ErrInvalidNotificationTemplate, t)
	}
	if data == nil {
		data = map[string]string{}
	}
	var subject, body bytes.Buffer
	if err := e.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", t, err)
	}
	if err := e.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", t, err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}

// SMSTemplateID returns the vendor's template code for t.
func (c *Catalog) SMSTemplateID(t domain.Template, vendor string) (string, error) {
	e, ok := c.entries[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", errs.ErrInvalidNotificationTemplate, t)
	}
	id, ok := e.sms[vendor]
	if !ok {
		return "", fmt.Errorf("%w: no %s sms template for %s", errs.ErrInvalidNotificationTemplate, vendor, t)
	}
	return id, nil
}
