// Package qr builds the portal consultation link for an access key and
// renders it as a QR code.
package qr

import (
	"fmt"
	"regexp"

	"github.com/go-faster/errors"
	"github.com/skip2/go-qrcode"

	"github.com/fiscalgo/go-dfe-client/dfe/model"
)

var accessKeyRe = regexp.MustCompile(`^\d{44}$`)

// ConsultationLink returns the public consultation URL for a 44-digit
// access key in the given environment.
func ConsultationLink(env model.Environment, chave string) (string, error) {
	if !accessKeyRe.MatchString(chave) {
		return "", errors.New("access key must contain exactly 44 digits")
	}

	base := "https://www.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx"
	if env == model.Homologacao {
		base = "https://hom.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx"
	}

	return fmt.Sprintf("%s?tipoConsulta=resumo&chNFe=%s", base, chave), nil
}

// Png renders a consultation link as a 300x300 QR PNG.
func Png(link string) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, 300)
}
