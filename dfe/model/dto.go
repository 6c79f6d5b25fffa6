package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DistDFeIntDTO carries the fields merged into the distribution-of-interest
// request template.
type DistDFeIntDTO struct {
	TpAmb    string
	CUFAutor string
	CNPJ     string
	UltNSU   string
}

// ConsSitNFeDTO carries the fields merged into the per-key consultation
// request template.
type ConsSitNFeDTO struct {
	TpAmb string
	ChNFe string
}

// DistributionCursor is the mutable position of one distribution session.
// It starts at NSU zero and only ever moves forward; a cursor is never
// shared between sessions.
type DistributionCursor struct {
	CNPJ     string
	UF       string
	UltNSU   uint64
	Ambiente Environment
}

// FormattedNSU renders the cursor position as the 15-digit zero-padded
// string the wire format requires.
func (c *DistributionCursor) FormattedNSU() string {
	return fmt.Sprintf("%015d", c.UltNSU)
}

// Advance moves the cursor forward to nsu. Moves backwards are ignored, the
// sequence is monotonic within a session.
func (c *DistributionCursor) Advance(nsu uint64) {
	if nsu > c.UltNSU {
		c.UltNSU = nsu
	}
}

// InvoiceRecord is one normalized fiscal document. Chave (the 44-digit
// access key) is the natural identifier: two records with the same key are
// the same logical document.
type InvoiceRecord struct {
	Chave          string          `json:"chave"`
	Numero         string          `json:"numero"`
	DataEmissao    string          `json:"dataEmissao"`
	FornecedorCNPJ string          `json:"fornecedorCNPJ"`
	FornecedorNome string          `json:"fornecedorNome"`
	ValorTotal     decimal.Decimal `json:"valorTotal"`
	XMLContent     string          `json:"xmlContent"`
}

// QueryResult is the final report of one client invocation. Immutable after
// construction.
type QueryResult struct {
	Success         bool            `json:"success"`
	Notas           []InvoiceRecord `json:"notas"`
	TotalConsultado int             `json:"totalConsultado"`
	TotalErros      int             `json:"totalErros"`
	TotalSalvo      int             `json:"totalSalvo"`
	Resumo          string          `json:"resumo"`
	Detalhes        []string        `json:"detalhes"`
}
