// Package mail builds and delivers the transactional emails of the service.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// DefaultFrom is the sender used when email.from is not configured
const DefaultFrom = "DeliciousRoute <no-reply@deliciousroute.com>"

// Kind labels a message for logs and metrics
type Kind string

const (
	KindPasswordReset        Kind = "password_reset"
	KindCustomerWelcome      Kind = "customer_welcome"
	KindVendorWelcome        Kind = "vendor_welcome"
	KindPasswordChanged      Kind = "password_changed"
	KindVendorProfileChanged Kind = "vendor_profile_changed"
)

// Message is a single outgoing email. HTML is optional.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Text    string
	HTML    string
}

var htmlLayout = template.Must(template.New("layout").Parse(
	`<div style="font-family: system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; font-size: 16px; color: #212121; line-height: 1.5;">` +
		`{{range .Paragraphs}}<p style="margin: 0 0 16px;">{{.}}</p>{{end}}` +
		`{{if .Footer}}<p style="margin: 0; font-size: 13px; color: #757575;">{{.Footer}}</p>{{end}}` +
		`</div>`))

type layoutData struct {
	Paragraphs []string
	Footer     string
}

func renderHTML(paragraphs []string, footer string) string {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, layoutData{Paragraphs: paragraphs, Footer: footer}); err != nil {
		return ""
	}
	return buf.String()
}

func greeting(name, suffix string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hey there,"
	}
	if suffix != "" {
		return fmt.Sprintf("Hey %s %s,", name, suffix)
	}
	return fmt.Sprintf("Hey %s,", name)
}

// PasswordReset builds the email carrying the reset link
func PasswordReset(to, resetURL string) Message {
	return Message{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: "Reset your Delicious Route password",
		Text: "We received a request to reset your Delicious Route password.\n\n" +
			"You can choose a new password by visiting this link:\n" + resetURL + "\n\n" +
			"If you didn't request this, you can ignore this email.",
	}
}

// CustomerWelcome greets a new customer account
func CustomerWelcome(to, displayName string) Message {
	hello := greeting(displayName, "")
	paragraphs := []string{
		hello,
		"Welcome to Delicious Route, your guide to the best food trucks around you.",
		"You can now save favorite trucks, explore reels, and personalize your profile so we can surface the right vendors for you.",
		"Thanks for joining the Delicious Route community!",
	}
	return Message{
		Kind:    KindCustomerWelcome,
		To:      to,
		Subject: "Welcome to Delicious Route",
		Text:    strings.Join(paragraphs, "\n\n"),
		HTML:    renderHTML(paragraphs, "If you didn't create this account, you can safely ignore this email."),
	}
}

// VendorWelcome greets a new vendor account
func VendorWelcome(to, vendorName string) Message {
	hello := greeting(vendorName, "team")
	paragraphs := []string{
		hello,
		"Welcome to Delicious Route, we're excited to help you reach more hungry customers.",
		"You can now set up your vendor profile, add menus and photos, and keep your GPS/location updated so fans can always find you.",
		"Thanks for partnering with Delicious Route!",
	}
	return Message{
		Kind:    KindVendorWelcome,
		To:      to,
		Subject: "Welcome to Delicious Route for Vendors",
		Text:    strings.Join(paragraphs, "\n\n"),
		HTML:    renderHTML(paragraphs, "If you didn't create this vendor account, you can safely ignore this email."),
	}
}

// PasswordChanged confirms a password change or reset
func PasswordChanged(to string) Message {
	return Message{
		Kind:    KindPasswordChanged,
		To:      to,
		Subject: "Your Delicious Route password was changed",
		Text: "The password for your Delicious Route account was just changed.\n\n" +
			"If this wasn't you, reset your password right away and contact support.",
	}
}

var changeLabels = map[string]string{
	"basic_info_updated": "profile details",
	"links_updated":      "website and social links",
	"location_updated":   "primary location",
	"hours_updated":      "open hours",
}

// VendorProfileChanged tells the owner which parts of the profile changed
func VendorProfileChanged(to, vendorName string, changes []string) Message {
	labels := make([]string, 0, len(changes))
	for _, c := range changes {
		if l, ok := changeLabels[c]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, strings.ReplaceAll(c, "_", " "))
		}
	}
	return Message{
		Kind:    KindVendorProfileChanged,
		To:      to,
		Subject: "Your Delicious Route vendor profile was updated",
		Text: greeting(vendorName, "team") + "\n\n" +
			"These parts of your vendor profile were updated: " + strings.Join(labels, ", ") + ".\n\n" +
			"If you didn't make this change, sign in and review your profile.",
	}
}
