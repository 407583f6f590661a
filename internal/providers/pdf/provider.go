package pdf

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/invoicer/internal/render"
	"go.uber.org/fx"
)

// Provider exports a print document as PDF bytes.
type Provider interface {
	Generate(ctx context.Context, doc render.Document) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// FileName returns a download name such as "invoice-0007-acme-corp.pdf".
func FileName(doc render.Document) string {
	name := slug.Make(strings.Join([]string{doc.Kind, doc.Number, doc.Client.Name}, " "))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
