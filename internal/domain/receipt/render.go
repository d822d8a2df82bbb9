package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	"github.com/xiebiao/bookorder/pkg/money"
)

// Subject 回执邮件标题
const Subject = "您的订单回执 / Your Order Receipt"

// ErrNoContact 买家没有可用的邮箱
var ErrNoContact = errors.New("receipt: empty contact")

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"yuan": money.Format,
}).Parse(`订单回执 / Order Receipt
订单号: {{.OrderNo}}
下单时间: {{.PlacedAt.Format "2006-01-02 15:04:05"}}

{{printf "%-10s %-10s %12s %12s" "Book ID" "Quantity" "Unit Price" "Total"}}
{{- range .Lines}}
{{printf "%-10d %-10d %12s %12s" .BookID .Quantity (yuan .UnitPrice) (yuan .LineTotal)}}
{{- end}}

{{printf "%-21s %25s" "Grand Total" (yuan .Total)}}
`))

// Render 渲染纯文本回执
func Render(r Receipt) (Message, error) {
	if r.Contact == "" {
		return Message{}, ErrNoContact
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, r); err != nil {
		return Message{}, fmt.Errorf("render receipt %s: %w", r.OrderNo, err)
	}

	return Message{
		To:      r.Contact,
		Subject: Subject,
		Body:    buf.String(),
	}, nil
}
