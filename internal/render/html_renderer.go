package render

import (
	"bytes"
	"html/template"
)

const documentHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Kind}} {{.Number}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .card {
      background: #ffffff;
      max-width: 800px;
      margin: 0 auto;
      padding: 48px;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
      border-radius: 4px;
    }
    .header { display: flex; justify-content: space-between; margin-bottom: 32px; }
    .company h1 { margin: 0 0 6px; font-size: 26px; }
    .muted { color: #697386; font-size: 13px; }
    .doc-meta { text-align: right; font-size: 14px; line-height: 1.6; }
    .doc-meta h2 { margin: 0 0 8px; font-size: 22px; }
    .status { display: inline-block; padding: 2px 8px; border-radius: 10px; background: #e3e8ee; font-size: 11px; font-weight: 600; }
    h3 { font-size: 14px; margin: 0 0 6px; }
    .section { margin-bottom: 24px; font-size: 14px; line-height: 1.5; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    th { text-align: left; font-size: 12px; color: #697386; border-bottom: 1px solid #e3e8ee; padding: 8px; }
    td { padding: 10px 8px; border-bottom: 1px solid #e3e8ee; font-size: 14px; vertical-align: top; }
    .right { text-align: right; }
    .totals { display: flex; flex-direction: column; align-items: flex-end; margin-bottom: 32px; }
    .total-row { display: flex; justify-content: space-between; width: 280px; padding: 4px 0; font-size: 14px; }
    .total-final { border-top: 1px solid #e3e8ee; margin-top: 6px; padding-top: 8px; font-weight: 700; }
    .pre { white-space: pre-line; color: #697386; }
    .footer { text-align: center; border-top: 1px solid #e3e8ee; padding-top: 12px; font-size: 10px; color: #8792a2; }
    @media print {
      @page { margin: 0; size: A4; }
      body { padding: 0; background: #ffffff; }
      .card { box-shadow: none; max-width: none; }
    }
  </style>
</head>
<body>
  <div class="card">
    <div class="header">
      <div class="company">
        <h1>{{.Company.Name}}</h1>
        {{if .Company.Address}}<div class="muted">{{.Company.Address}}</div>{{end}}
        {{if .Company.Contact}}<div class="muted">{{.Company.Contact}}</div>{{end}}
        {{if .Company.Email}}<div class="muted">{{.Company.Email}}</div>{{end}}
      </div>
      <div class="doc-meta">
        <h2>{{.Kind}}</h2>
        <div><strong>{{.Kind}} No.</strong> {{.Number}}</div>
        <div><strong>Date:</strong> {{.Date}}</div>
        {{if .ExpiryDate}}<div><strong>Valid until:</strong> {{.ExpiryDate}}</div>{{end}}
        {{if .Status}}<div class="status">{{.Status}}</div>{{end}}
      </div>
    </div>

    <div class="section">
      <h3>{{if .ShowBalance}}Bill To:{{else}}Quotation For:{{end}}</h3>
      <div><strong>{{.Client.Name}}</strong></div>
      {{if .Client.Contact}}<div>Contact: {{.Client.Contact}}</div>{{end}}
      {{if .Client.Address}}<div>Address: {{.Client.Address}}</div>{{end}}
    </div>

    <table>
      <thead>
        <tr>
          <th>Sr No.</th>
          <th style="width: 50%;">Description</th>
          <th class="right">Quantity</th>
          <th class="right">Rate</th>
          <th class="right">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.No}}</td>
          <td>{{.Description}}</td>
          <td class="right">{{.Quantity}}</td>
          <td class="right">{{.Rate}}</td>
          <td class="right">{{.Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="total-row{{if not .ShowBalance}} total-final{{end}}">
        <span>Total:</span><span>{{.Total}}</span>
      </div>
      {{if .ShowBalance}}
      <div class="total-row">
        <span>Advance:</span><span>{{.Advance}}</span>
      </div>
      <div class="total-row total-final">
        <span>Remaining Balance:</span><span>{{.RemainingBalance}}</span>
      </div>
      {{end}}
    </div>

    {{if .Terms}}
    <div class="section">
      <h3>{{.TermsLabel}}:</h3>
      <div class="pre">{{.Terms}}</div>
    </div>
    {{end}}
    {{if .BankAccountDetails}}
    <div class="section">
      <h3>Bank Account Details:</h3>
      <div class="pre">{{.BankAccountDetails}}</div>
    </div>
    {{end}}
    {{if .TermsAndConditions}}
    <div class="section">
      <h3>Terms &amp; Conditions:</h3>
      <div class="pre">{{.TermsAndConditions}}</div>
    </div>
    {{end}}

    {{if .FooterNote}}
    <div class="footer">{{.FooterNote}}</div>
    {{end}}
  </div>
</body>
</html>
`

type Renderer interface {
	RenderHTML(doc Document) (string, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("document").Parse(documentHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(doc Document) (string, error) {
	if doc.Company.Name == "" {
		doc.Company.Name = doc.Kind
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
