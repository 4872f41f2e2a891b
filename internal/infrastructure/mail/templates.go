package mail

import "html/template"

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Inter, system-ui, sans-serif; color: #0f172a; max-width: 600px; margin: 0 auto;">
{{template "content" .}}
<p style="color: #64748b; font-size: 12px; margin-top: 32px;">Tradeline Marketplace</p>
</body>
</html>{{end}}`

const itemsTemplate = `{{define "items"}}<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Tradeline</th><th align="right">Limit</th><th align="right">Qty</th><th align="right">Price</th></tr>
{{range .Items}}<tr><td>{{.BankName}}</td><td align="right">${{.CreditLimit}}</td><td align="right">{{.Quantity}}</td><td align="right">${{.LineTotal}}</td></tr>
{{end}}</table>
{{if .HasDiscount}}<p>Promo {{.PromoCode}}: -${{.Discount}}</p>{{end}}
<p><strong>Total: ${{.Total}}</strong></p>{{end}}`

var templates = map[string]string{
	"password_reset": `{{define "content"}}<h2>Reset your password</h2>
<p>Hi {{.Name}},</p>
<p>We received a request to reset the password of your client portal account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in one hour. If you did not ask for it you can ignore this email.</p>{{end}}`,

	"order_confirmation": `{{define "content"}}<h2>Order {{.OrderNumber}} received</h2>
<p>Hi {{.CustomerName}},</p>
<p>Thank you for your order. We will start processing it once payment is confirmed.</p>
{{template "items" .}}
{{if .PortalURL}}<p><a href="{{.PortalURL}}">Track your order in the client portal</a></p>{{end}}{{end}}`,

	"admin_new_order": `{{define "content"}}<h2>New order {{.OrderNumber}}</h2>
<p>{{.CustomerName}} &lt;{{.CustomerEmail}}&gt; placed an order{{if .Brokered}} through a broker{{end}}.</p>
{{template "items" .}}{{end}}`,

	"payment_confirmation": `{{define "content"}}<h2>Payment received</h2>
<p>Hi {{.CustomerName}},</p>
<p>We received your payment of ${{.Total}}{{if .PaymentMethod}} by {{.PaymentMethod}}{{end}} for order {{.OrderNumber}}.</p>
<p>Your tradelines are now being placed. We will email you again when they are posted.</p>{{end}}`,

	"order_fulfilled": `{{define "content"}}<h2>Order {{.OrderNumber}} fulfilled</h2>
<p>Hi {{.CustomerName}},</p>
<p>Your tradelines have been added. They usually report to the bureaus within one to two billing cycles.</p>
{{template "items" .}}{{end}}`,

	"broker_welcome": `{{define "content"}}<h2>Welcome to Tradeline Marketplace</h2>
<p>Hi {{.Name}},</p>
<p>Your broker account{{if .CompanyName}} for {{.CompanyName}}{{end}} has been created{{if .Pending}} and is awaiting approval{{end}}.</p>
<p>Your widget API key is <code>{{.APIKey}}</code>. Your API secret is delivered separately by your account manager.</p>{{end}}`,
}

// parseTemplates builds one template per email, each sharing the layout
func parseTemplates() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		t := template.Must(template.New(name).Parse(layoutTemplate))
		template.Must(t.Parse(itemsTemplate))
		template.Must(t.Parse(body))
		out[name] = t.Lookup("layout")
	}
	return out
}
