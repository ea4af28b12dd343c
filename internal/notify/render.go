package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/vburojevic/pricewatch/internal/domain"
)

const htmlBody = `<div style="font-family:'Segoe UI',sans-serif;max-width:500px;margin:auto;background:#0d1628;color:#deeeff;border-radius:12px;padding:32px">
  {{- if .Drop}}
  <h2 style="color:#5ddba5;margin:0 0 6px">Price Drop Detected</h2>
  <p style="color:#4a6a8a;font-size:14px;margin:0 0 24px">Good news, the price went down.</p>
  {{- else}}
  <h2 style="color:#f09060;margin:0 0 6px">Price Increase Detected</h2>
  <p style="color:#4a6a8a;font-size:14px;margin:0 0 24px">The price went up since your last check.</p>
  {{- end}}
  <table style="width:100%;font-size:15px;border-collapse:collapse">
    <tr style="border-bottom:1px solid #1e3356">
      <td style="padding:10px 0;color:#4a6a8a">Was</td>
      <td style="padding:10px 0;text-align:right;color:#4a6a8a">{{if .Drop}}<s>{{.Old}}</s>{{else}}{{.Old}}{{end}}</td>
    </tr>
    <tr>
      <td style="padding:10px 0;font-weight:bold">Now</td>
      <td style="padding:10px 0;text-align:right;font-weight:bold;color:{{.Color}};font-size:20px">{{.New}}</td>
    </tr>
    {{- if .Drop}}
    <tr>
      <td style="padding:10px 0;color:#5ddba5">You save</td>
      <td style="padding:10px 0;text-align:right;color:#5ddba5">{{.Delta}}</td>
    </tr>
    {{- end}}
  </table>
  <a href="{{.Target}}" style="display:inline-block;margin-top:24px;background:{{.Button}};color:#080e1a;padding:13px 28px;text-decoration:none;border-radius:8px;font-weight:bold;font-size:15px">{{.Action}} →</a>
</div>
`

const textBody = `{{if .Drop}}Price Drop Detected
Good news, the price went down.{{else}}Price Increase Detected
The price went up since your last check.{{end}}

Was:      {{.Old}}
Now:      {{.New}}
{{if .Drop}}You save: {{.Delta}}{{else}}Change:   +{{.Delta}}{{end}}

{{.Action}}: {{.Target}}
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
)

type view struct {
	Drop   bool
	Old    string
	New    string
	Delta  string
	Target string
	Action string
	Color  htmltemplate.CSS
	Button htmltemplate.CSS
}

// Subject returns the alert subject line.
func Subject(a domain.Alert) string {
	if a.Kind == domain.AlertDrop {
		return fmt.Sprintf("Price Dropped to %s!", a.New)
	}
	return fmt.Sprintf("Price Increased to %s", a.New)
}

// Render builds the HTML and plain-text message for an alert.
func Render(a domain.Alert) (Message, error) {
	v := view{
		Drop:   a.Kind == domain.AlertDrop,
		Old:    a.Old.String(),
		New:    a.New.String(),
		Delta:  a.Delta.String(),
		Target: a.Target,
		Action: "View Product",
		Color:  "#f09060",
		Button: "#4da6d6",
	}
	if v.Drop {
		v.Action, v.Color, v.Button = "Buy Now", "#5ddba5", "#5ddba5"
	}

	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&t, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{
		Alert:     a,
		Recipient: a.Recipient,
		Subject:   Subject(a),
		HTML:      h.String(),
		Text:      t.String(),
	}, nil
}
