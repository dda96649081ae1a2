package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// Subjects
const (
	SubjectMatchForLoser  = "Potential match found for your lost item"
	SubjectMatchForFinder = "Item match awaiting confirmation"
	SubjectFoundForLoser  = "Your lost item has been found!"
	SubjectConfirmed      = "Lost & Found match confirmed"
	SubjectOfficeApproved = "Match approved for admin-reported found item"
)

var funcs = template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
	"orNA": func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	},
}

var templates = template.Must(template.New("mail").Funcs(funcs).Parse(`
{{define "summary"}}
<h2>Match Confidence: {{percent .Match.ConfidenceScore}}</h2>
<h3>Lost Item</h3>
<p><strong>Description:</strong> {{.Lost.Description}}</p>
<p><strong>Location Last Seen:</strong> {{.Lost.Location}}</p>
<h3>Found Item</h3>
<p><strong>Description:</strong> {{.Found.Description}}</p>
<p><strong>Location Found:</strong> {{.Found.Location}}</p>
{{if .Found.ImageURL}}<p><strong>Found Item Image:</strong><br><img src="{{.Found.ImageURL}}" alt="Found item image" style="max-width: 320px;"/></p>{{end}}
{{end}}

{{define "contact"}}
<ul>
  <li><strong>Name:</strong> {{orNA .Name}}</li>
  <li><strong>Email:</strong> {{orNA .Email}}</li>
  <li><strong>Contact Number:</strong> {{orNA .ContactNumber}}</li>
</ul>
{{end}}

{{define "created_loser"}}
<p>Hi {{.Greeting}},</p>
<p>We think we may have found your lost item. Review the details below and approve the match from your dashboard.</p>
{{template "summary" .}}
<p>Please sign in to the Lost &amp; Found portal to accept or reject this match.</p>
{{end}}

{{define "created_finder"}}
<p>Hi {{.Greeting}},</p>
<p>Your reported item might belong to someone. Once they approve the match, we will share their contact information.</p>
{{template "summary" .}}
<p>No action needed yet. We will notify you when the owner confirms the match.</p>
{{end}}

{{define "resolved_loser"}}
<p>Hi {{.Greeting}},</p>
<p>Your item has been successfully matched! Connect with the finder to arrange pickup:</p>
{{template "contact" .FinderContact}}
<p>Thank you for using the Lost &amp; Found service.</p>
{{end}}

{{define "resolved_finder"}}
<p>Hi {{.Greeting}},</p>
<p>The owner has approved the match! Here are their contact details:</p>
{{template "contact" .LoserContact}}
<p>Please coordinate directly to hand over the item.</p>
{{end}}

{{define "resolved_office"}}
<p>Hi {{.Greeting}},</p>
<p>A match has been approved for a found item that was reported by the admin office (either on behalf of a user or as an office report).</p>
{{template "summary" .}}
<h3>Contact Information</h3>
<p><strong>Item Owner (Lost Item):</strong></p>
{{template "contact" .LoserContact}}
<p><strong>Finder (Found Item):</strong></p>
{{template "contact" .FinderContact}}
<p>The match has been approved and both parties have been notified. They will coordinate directly to arrange pickup.</p>
{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
