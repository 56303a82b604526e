package email

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"money": formatMoney,
	"date": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
}

// loadTemplates carrega os templates embutidos no binário
func loadTemplates() (*template.Template, error) {
	return template.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// formatMoney escreve valores no formato brasileiro: R$ 1.234,50
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
