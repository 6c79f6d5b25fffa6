// Package extract parses one fiscal-document XML into a normalized
// InvoiceRecord. The service is inconsistent about namespace declarations
// and document shape (full nfeProc vs resNFe summary), so every logical
// field is resolved through an ordered list of candidate spellings matched
// by local name only.
package extract

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fiscalgo/go-dfe-client/dfe/model"
)

var logger = logrus.WithField("component", "dfe.extract")

// accessKeyPrefix is the literal prepended to the access key in the Id
// attribute of infNFe.
const accessKeyPrefix = "NFe"

// candidate is one possible location of a logical field: an element local
// name, optionally constrained to a direct parent, optionally reading an
// attribute instead of the element text.
type candidate struct {
	parent string
	tag    string
	attr   string
}

type fieldSpec struct {
	name       string
	candidates []candidate
}

// Candidates are tried in order, first non-empty match wins.
var (
	keyField = fieldSpec{name: "chave", candidates: []candidate{
		{tag: "infNFe", attr: "Id"},
		{parent: "resNFe", tag: "chNFe"},
		{tag: "resNFe", attr: "chNFe"},
		{tag: "chNFe"},
	}}

	dateField = fieldSpec{name: "dataEmissao", candidates: []candidate{
		{tag: "dhEmi"},
		{tag: "dEmi"},
		{tag: "dhRecbto"},
	}}

	issuerIDField = fieldSpec{name: "fornecedorCNPJ", candidates: []candidate{
		{parent: "emit", tag: "CNPJ"},
		{parent: "emit", tag: "CPF"},
		{parent: "resNFe", tag: "CNPJ"},
	}}

	issuerNameField = fieldSpec{name: "fornecedorNome", candidates: []candidate{
		{parent: "emit", tag: "xNome"},
		{parent: "resNFe", tag: "xNome"},
	}}

	numberField = fieldSpec{name: "numero", candidates: []candidate{
		{parent: "ide", tag: "nNF"},
		{tag: "nNF"},
	}}

	totalField = fieldSpec{name: "valorTotal", candidates: []candidate{
		{parent: "ICMSTot", tag: "vNF"},
		{parent: "resNFe", tag: "vNF"},
		{tag: "vNF"},
	}}
)

// Invoice parses xmlText into a best-effort InvoiceRecord. It returns nil
// on XML parse failure or when the document yields neither a key nor an
// emission context; a nil result must never abort the surrounding batch.
// fallbackKey is used when the document does not carry its own access key.
func Invoice(xmlText string, fallbackKey string) *model.InvoiceRecord {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlText); err != nil {
		logger.WithError(err).Warn("discarding document that is not well-formed XML")
		return nil
	}
	root := doc.Root()
	if root == nil {
		return nil
	}

	chave := strings.TrimPrefix(lookup(doc, keyField), accessKeyPrefix)
	if chave == "" {
		chave = fallbackKey
	}
	emissao := lookup(doc, dateField)

	if chave == "" || emissao == "" {
		logger.WithField("root", root.Tag).Debug("document has no access key or emission date")
		return nil
	}

	return &model.InvoiceRecord{
		Chave:          chave,
		Numero:         lookup(doc, numberField),
		DataEmissao:    emissao,
		FornecedorCNPJ: lookup(doc, issuerIDField),
		FornecedorNome: lookup(doc, issuerNameField),
		ValorTotal:     parseTotal(lookup(doc, totalField)),
		XMLContent:     xmlText,
	}
}

// lookup resolves one logical field against the document. etree keeps the
// namespace prefix out of Element.Tag, so a plain path segment already
// matches any (or no) namespace.
func lookup(doc *etree.Document, spec fieldSpec) string {
	for _, c := range spec.candidates {
		for _, el := range doc.FindElements("//" + c.tag) {
			if c.parent != "" {
				p := el.Parent()
				if p == nil || p.Tag != c.parent {
					continue
				}
			}

			var v string
			if c.attr != "" {
				v = el.SelectAttrValue(c.attr, "")
			} else {
				v = el.Text()
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func parseTotal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		logger.WithField("valor", raw).Warn("total value is not a decimal, defaulting to zero")
		return decimal.Zero
	}
	return v
}
