package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dkraev/fintrack/internal/infra/bigquery"
)

// richText builds a single-run rich text property.
func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: content},
			},
		},
	}
}

// TransactionToNotionProperties converts a stored transaction to the
// properties of the Transactions database. The "Transaction ID" property is
// the sync key: it lets later runs recognize pages they already created.
func TransactionToNotionProperties(tx *bigquery.TransactionRow) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.RawDescription},
				},
			},
		},
		"Transaction ID": richText(tx.TransactionID),
	}

	date := notionapi.Date(tx.TransactionDate.In(time.UTC))
	props["Date"] = notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &date},
	}

	if tx.Amount != nil {
		amount, _ := tx.Amount.Float64()
		props["Amount"] = notionapi.NumberProperty{Number: amount}
	}

	if tx.Currency != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Currency},
		}
	}

	if tx.Direction != "" {
		props["Direction"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Direction},
		}
	}

	if tx.AccountID != "" {
		props["Account"] = richText(tx.AccountID)
	}

	// Transfer state: checkbox plus the link id, so paired legs are visible
	// side by side in Notion.
	props["Internal Transfer"] = notionapi.CheckboxProperty{
		Checkbox: tx.IsInternalTransfer.Valid && tx.IsInternalTransfer.Bool,
	}
	if tx.TransferLinkID.Valid && tx.TransferLinkID.StringVal != "" {
		props["Transfer Link"] = richText(tx.TransferLinkID.StringVal)
	}

	return props
}

// BalanceToNotionProperties converts a consolidated balance to the
// properties of the Balances database, keyed by statement id.
func BalanceToNotionProperties(row *bigquery.ConsolidatedBalanceRow) notionapi.Properties {
	props := notionapi.Properties{
		"Statement ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: row.StatementID},
				},
			},
		},
		"Confidence": notionapi.NumberProperty{Number: float64(row.Confidence)},
	}

	if row.ClosingBalance != nil {
		closing, _ := row.ClosingBalance.Float64()
		props["Closing Balance"] = notionapi.NumberProperty{Number: closing}
	}

	if row.SourcePage > 0 {
		props["Source Page"] = notionapi.NumberProperty{Number: float64(row.SourcePage)}
	}

	if row.Notes != "" {
		props["Notes"] = richText(row.Notes)
	}

	return props
}

// extractSyncKey pulls the rich-text sync key property from a Notion page,
// returning "" when the property is absent or empty.
func extractSyncKey(page notionapi.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok {
		return ""
	}

	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}

	return rt.RichText[0].PlainText
}
