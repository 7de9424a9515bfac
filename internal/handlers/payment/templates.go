package payment

import (
	"html/template"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
)

// pageData feeds every page template. Unused fields are left empty.
type pageData struct {
	Title       string
	Message     string
	Action      string
	SubmitLabel string
	Fields      []paymentsense.Field
	Nonce       string
}

var (
	redirectPage = template.Must(template.New("redirect").Parse(pageHead + redirectBody))
	messagePage  = template.Must(template.New("message").Parse(pageHead + messageBody))
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            max-width: 600px;
            margin: 50px auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background: white;
            padding: 40px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            text-align: center;
        }
        .button {
            display: inline-block;
            padding: 12px 24px;
            background-color: #3b82f6;
            color: white;
            border: none;
            border-radius: 6px;
            font-size: 16px;
            cursor: pointer;
        }
    </style>
</head>
`

// The form posts itself on load. The button is the fallback when scripts
// are blocked.
const redirectBody = `<body>
    <div class="container">
        <h2>{{.Title}}</h2>
        <p>{{.Message}}</p>
        <form id="redirect-form" action="{{.Action}}" method="post">
            {{- range .Fields}}
            <input type="hidden" name="{{.Name}}" value="{{.Value}}">
            {{- end}}
            <button class="button" type="submit">{{.SubmitLabel}}</button>
        </form>
    </div>
    <script nonce="{{.Nonce}}">document.getElementById("redirect-form").submit();</script>
</body>
</html>`

const messageBody = `<body>
    <div class="container">
        <h2>{{.Title}}</h2>
        <p>{{.Message}}</p>
    </div>
</body>
</html>`
