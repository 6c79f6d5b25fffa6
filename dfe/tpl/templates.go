// Package tpl holds the SOAP request bodies sent to the SEFAZ web services.
// Bodies are text templates merged with the DTOs from dfe/model.
package tpl

// DistDFeInteresseRequest is the distribution-of-interest enumeration
// request (distDFeInt 1.01). UltNSU must already be zero-padded to 15
// digits.
var DistDFeInteresseRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Header/>
    <soap:Body>
        <nfeDistDFeInteresse xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe">
            <nfeDadosMsg>
                <distDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
                    <tpAmb>{{.TpAmb}}</tpAmb>
                    <cUFAutor>{{.CUFAutor}}</cUFAutor>
                    <CNPJ>{{.CNPJ}}</CNPJ>
                    <distNSU>
                        <ultNSU>{{.UltNSU}}</ultNSU>
                    </distNSU>
                </distDFeInt>
            </nfeDadosMsg>
        </nfeDistDFeInteresse>
    </soap:Body>
</soap:Envelope>`

// ConsSitNFeRequest fetches the full protocol document for a single access
// key (consSitNFe 4.00).
var ConsSitNFeRequest = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Header/>
    <soap:Body>
        <nfeConsultaNF xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo">
            <nfeDadosMsg>
                <consSitNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
                    <tpAmb>{{.TpAmb}}</tpAmb>
                    <xServ>CONSULTAR</xServ>
                    <chNFe>{{.ChNFe}}</chNFe>
                </consSitNFe>
            </nfeDadosMsg>
        </nfeConsultaNF>
    </soap:Body>
</soap:Envelope>`

// SOAP action URIs, sent both as the SOAPAction header and inside the
// Content-Type action parameter.
const (
	ActionDistDFeInteresse = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe/nfeDistDFeInteresse"
	ActionConsultaNF       = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo/nfeConsultaNF"
)
