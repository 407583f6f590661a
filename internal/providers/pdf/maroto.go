package pdf

import (
	"context"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/invoicer/internal/render"
)

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) Generate(ctx context.Context, doc render.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	companyName := doc.Company.Name
	if companyName == "" {
		companyName = doc.Kind
	}
	m.AddRow(14,
		text.NewCol(7, companyName, props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(5, doc.Kind, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
	)

	meta := col.New(5).Add(
		text.New(doc.Kind+" No. "+doc.Number, props.Text{Align: align.Right}),
		text.New("Date: "+doc.Date, props.Text{Top: 5, Align: align.Right}),
	)
	if doc.ExpiryDate != "" {
		meta.Add(text.New("Valid until: "+doc.ExpiryDate, props.Text{Top: 10, Align: align.Right}))
	}
	if doc.Status != "" {
		meta.Add(text.New(doc.Status, props.Text{Top: 15, Style: fontstyle.Bold, Align: align.Right}))
	}
	m.AddRow(22,
		col.New(7).Add(
			text.New(doc.Company.Address, props.Text{Size: 9}),
			text.New(doc.Company.Contact, props.Text{Size: 9, Top: 5}),
			text.New(doc.Company.Email, props.Text{Size: 9, Top: 10}),
		),
		meta,
	)

	billTo := "Bill To:"
	if !doc.ShowBalance {
		billTo = "Quotation For:"
	}
	m.AddRow(22,
		col.New(12).Add(
			text.New(billTo, props.Text{Style: fontstyle.Bold}),
			text.New(doc.Client.Name, props.Text{Top: 5}),
			text.New("Contact: "+doc.Client.Contact, props.Text{Top: 10, Size: 9}),
			text.New("Address: "+doc.Client.Address, props.Text{Top: 15, Size: 9}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(1, "Sr No.", header),
		text.NewCol(5, "Description", header),
		text.NewCol(2, "Quantity", headerRight),
		text.NewCol(2, "Rate", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)
	m.AddRow(2, line.NewCol(12))

	rows := make([]core.Row, 0, len(doc.Items))
	for _, item := range doc.Items {
		rows = append(rows, row.New(8).Add(
			text.NewCol(1, strconv.Itoa(item.No), props.Text{Size: 9}),
			text.NewCol(5, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Rate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		))
	}
	m.AddRows(rows...)
	m.AddRow(2, line.NewCol(12))

	m.AddRow(7, col.New(7), text.NewCol(2, "Total:", props.Text{Size: 9}), text.NewCol(3, doc.Total, props.Text{Size: 9, Align: align.Right}))
	if doc.ShowBalance {
		m.AddRow(7, col.New(7), text.NewCol(2, "Advance:", props.Text{Size: 9}), text.NewCol(3, doc.Advance, props.Text{Size: 9, Align: align.Right}))
		m.AddRow(7, col.New(7),
			text.NewCol(2, "Remaining Balance:", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(3, doc.RemainingBalance, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		)
	}

	addSection(m, doc.TermsLabel+":", doc.Terms)
	addSection(m, "Bank Account Details:", doc.BankAccountDetails)
	addSection(m, "Terms & Conditions:", doc.TermsAndConditions)

	if doc.FooterNote != "" {
		m.AddRow(12, text.NewCol(12, doc.FooterNote, props.Text{Size: 7, Top: 6, Align: align.Center}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func addSection(m core.Maroto, title, body string) {
	if body == "" {
		return
	}
	m.AddRow(8, text.NewCol(12, title, props.Text{Style: fontstyle.Bold, Size: 10, Top: 3}))
	m.AddAutoRow(text.NewCol(12, body, props.Text{Size: 9}))
}
