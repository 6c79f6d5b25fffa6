package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chave = "42250914309992000148550010040830921915351968"

const procNFe = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe">
    <NFe>
        <infNFe Id="NFe` + chave + `">
            <ide>
                <nNF>4083092</nNF>
                <dhEmi>2025-09-02T22:00:25-03:00</dhEmi>
            </ide>
            <emit>
                <CNPJ>14309992000148</CNPJ>
                <xNome>WEG DRIVES LTDA</xNome>
            </emit>
            <dest>
                <CNPJ>58521876000163</CNPJ>
                <xNome>W3E SOLUCOES LTDA</xNome>
            </dest>
            <total>
                <ICMSTot>
                    <vProd>1539.38</vProd>
                    <vNF>1689.47</vNF>
                </ICMSTot>
            </total>
        </infNFe>
    </NFe>
</nfeProc>`

const resNFe = `<resNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
    <chNFe>` + chave + `</chNFe>
    <CNPJ>14309992000148</CNPJ>
    <xNome>WEG DRIVES LTDA</xNome>
    <dhEmi>2025-09-02T22:00:25-03:00</dhEmi>
    <vNF>1689.47</vNF>
</resNFe>`

func TestInvoice_FullDocument(t *testing.T) {
	rec := Invoice(procNFe, "")

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
	assert.Equal(t, "4083092", rec.Numero)
	assert.Equal(t, "2025-09-02T22:00:25-03:00", rec.DataEmissao)
	assert.Equal(t, "14309992000148", rec.FornecedorCNPJ)
	assert.Equal(t, "WEG DRIVES LTDA", rec.FornecedorNome)
	assert.True(t, rec.ValorTotal.Equal(decimal.RequireFromString("1689.47")))
	assert.Equal(t, procNFe, rec.XMLContent)
}

func TestInvoice_IssuerNotConfusedWithRecipient(t *testing.T) {
	rec := Invoice(procNFe, "")

	require.NotNil(t, rec)
	assert.NotEqual(t, "58521876000163", rec.FornecedorCNPJ)
	assert.NotEqual(t, "W3E SOLUCOES LTDA", rec.FornecedorNome)
}

func TestInvoice_Summary(t *testing.T) {
	rec := Invoice(resNFe, "")

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
	assert.Equal(t, "14309992000148", rec.FornecedorCNPJ)
	assert.Equal(t, "WEG DRIVES LTDA", rec.FornecedorNome)
	assert.True(t, rec.ValorTotal.Equal(decimal.RequireFromString("1689.47")))
}

func TestInvoice_SummaryKeyAsAttribute(t *testing.T) {
	doc := `<resNFe chNFe="` + chave + `"><dhEmi>2025-09-02T10:00:00-03:00</dhEmi></resNFe>`

	rec := Invoice(doc, "")

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
}

func TestInvoice_NoNamespace(t *testing.T) {
	doc := `<nfeProc><NFe><infNFe Id="NFe` + chave + `"><ide><dhEmi>2025-09-02</dhEmi></ide></infNFe></NFe></nfeProc>`

	rec := Invoice(doc, "")

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
}

func TestInvoice_PrefixedNamespace(t *testing.T) {
	doc := `<nfe:resNFe xmlns:nfe="http://www.portalfiscal.inf.br/nfe">
        <nfe:chNFe>` + chave + `</nfe:chNFe>
        <nfe:dhEmi>2025-09-02T10:00:00-03:00</nfe:dhEmi>
        <nfe:vNF>10.50</nfe:vNF>
    </nfe:resNFe>`

	rec := Invoice(doc, "")

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
	assert.True(t, rec.ValorTotal.Equal(decimal.RequireFromString("10.50")))
}

func TestInvoice_FallbackKey(t *testing.T) {
	doc := `<retConsSitNFe><cStat>100</cStat><dhRecbto>2025-09-02T22:01:45-03:00</dhRecbto></retConsSitNFe>`

	rec := Invoice(doc, chave)

	require.NotNil(t, rec)
	assert.Equal(t, chave, rec.Chave)
	assert.Equal(t, "2025-09-02T22:01:45-03:00", rec.DataEmissao)
}

func TestInvoice_MalformedXML(t *testing.T) {
	assert.Nil(t, Invoice("this is < not xml", chave))
}

func TestInvoice_NoKeyNoFallback(t *testing.T) {
	assert.Nil(t, Invoice(`<doc><dhEmi>2025-09-02</dhEmi></doc>`, ""))
}

func TestInvoice_NoEmissionContext(t *testing.T) {
	assert.Nil(t, Invoice(`<resNFe><chNFe>`+chave+`</chNFe></resNFe>`, ""))
}

func TestInvoice_MissingTotalDefaultsToZero(t *testing.T) {
	doc := `<resNFe><chNFe>` + chave + `</chNFe><dhEmi>2025-09-02</dhEmi></resNFe>`

	rec := Invoice(doc, "")

	require.NotNil(t, rec)
	assert.True(t, rec.ValorTotal.IsZero())
}

func TestInvoice_BadTotalDefaultsToZero(t *testing.T) {
	doc := `<resNFe><chNFe>` + chave + `</chNFe><dhEmi>2025-09-02</dhEmi><vNF>abc</vNF></resNFe>`

	rec := Invoice(doc, "")

	require.NotNil(t, rec)
	assert.True(t, rec.ValorTotal.IsZero())
}

func TestLookup_CandidateOrder(t *testing.T) {
	doc := `<root>
        <resNFe><vNF>1.00</vNF></resNFe>
        <ICMSTot><vNF>2.00</vNF></ICMSTot>
    </root>`

	rec := Invoice(`<resNFe><chNFe>`+chave+`</chNFe><dhEmi>2025-09-02</dhEmi></resNFe>`, "")
	require.NotNil(t, rec)

	// ICMSTot candidate ranks above resNFe regardless of document order.
	full := Invoice(`<x><chNFe>`+chave+`</chNFe><dhEmi>2025-09-02</dhEmi>`+doc+`</x>`, "")
	require.NotNil(t, full)
	assert.True(t, full.ValorTotal.Equal(decimal.RequireFromString("2.00")))
}
