// Package statement renders an account and its ledger entries as an XML
// statement document.
package statement

import (
	"io"
	"strconv"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/beevik/etree"
)

// Render builds the statement document for account. Entries keep the order
// of txns; each one is a credit or a debit from the account's point of view.
func Render(account *models.Account, txns []models.Transaction, generatedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("account", strconv.FormatInt(account.ID, 10))
	root.CreateAttr("owner", strconv.FormatInt(account.OwnerID, 10))
	root.CreateAttr("version", strconv.FormatInt(account.Version, 10))
	root.CreateAttr("generated", generatedAt.UTC().Format(time.RFC3339))

	balance := root.CreateElement("balance")
	balance.SetText(models.FormatAmount(account.Balance))

	entries := root.CreateElement("entries")
	var credits, debits int64
	for _, txn := range txns {
		e := entries.CreateElement("entry")
		e.CreateAttr("id", strconv.FormatInt(txn.ID, 10))
		e.CreateAttr("kind", string(txn.Kind))
		e.CreateAttr("timestamp", txn.Timestamp.UTC().Format(time.RFC3339))

		direction, counterparty := "credit", txn.PayerID
		if txn.PayerID != nil && *txn.PayerID == account.ID {
			direction, counterparty = "debit", txn.ReceiverID
			debits += txn.Amount
		} else {
			credits += txn.Amount
		}
		e.CreateAttr("direction", direction)
		if counterparty != nil {
			e.CreateAttr("counterparty", strconv.FormatInt(*counterparty, 10))
		}
		e.SetText(models.FormatAmount(txn.Amount))
	}

	totals := root.CreateElement("totals")
	totals.CreateAttr("entries", strconv.Itoa(len(txns)))
	totals.CreateElement("credits").SetText(models.FormatAmount(credits))
	totals.CreateElement("debits").SetText(models.FormatAmount(debits))

	doc.Indent(2)
	return doc
}

// Write renders the statement and writes it to w
func Write(w io.Writer, account *models.Account, txns []models.Transaction, generatedAt time.Time) error {
	_, err := Render(account, txns, generatedAt).WriteTo(w)
	return err
}
