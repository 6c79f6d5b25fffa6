package model

import (
	"fmt"
	"strings"
)

type Environment int

const (
	Producao Environment = iota
	Homologacao
)

// TpAmb returns the wire value for the tpAmb element.
func (e Environment) TpAmb() string {
	switch e {
	case Producao:
		return "1"
	case Homologacao:
		return "2"
	}
	panic("invalid environment")
}

func (e Environment) Name() string {
	switch e {
	case Producao:
		return "producao"
	case Homologacao:
		return "homologacao"
	}
	panic("invalid environment")
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "producao", "prod":
		*e = Producao
	case "homologacao", "hom":
		*e = Homologacao
	default:
		return fmt.Errorf("invalid DFE_ENV: %q (allowed: producao, homologacao)", val)
	}
	return nil
}

// ServiceURLs groups the two web-service address families used by the
// client: document distribution (enumeration + batches) and direct
// document retrieval by access key.
type ServiceURLs struct {
	Distribution string
	Consultation string
}

// Endpoints maps a region code (UF, or "AN" for the national environment)
// to its service addresses. The table is an explicit value handed to the
// services at construction so tests can substitute fake endpoints.
type Endpoints map[string]ServiceURLs

// Resolve returns the addresses for the given region, falling back to the
// national environment for unknown codes.
func (eps Endpoints) Resolve(uf string) ServiceURLs {
	if urls, ok := eps[strings.ToUpper(strings.TrimSpace(uf))]; ok {
		return urls
	}
	return eps[NationalEnvironment]
}

// NationalEnvironment is the region code of the shared national services.
const NationalEnvironment = "AN"

// DefaultEndpoints returns the published SEFAZ addresses for the given
// environment. Distribution is served by the national environment for every
// region; a few states run their own consultation services.
func DefaultEndpoints(e Environment) Endpoints {
	if e == Homologacao {
		return Endpoints{
			NationalEnvironment: {
				Distribution: "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
				Consultation: "https://hom1.nfe.fazenda.gov.br/NFeConsultaProtocolo/NFeConsultaProtocolo.asmx",
			},
			"SP": {
				Distribution: "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
				Consultation: "https://homologacao.nfe.fazenda.sp.gov.br/ws/nfeconsultaprotocolo4.asmx",
			},
			"RS": {
				Distribution: "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
				Consultation: "https://nfe-homologacao.sefazrs.rs.gov.br/ws/NfeConsulta/NfeConsulta4.asmx",
			},
		}
	}
	return Endpoints{
		NationalEnvironment: {
			Distribution: "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
			Consultation: "https://www1.nfe.fazenda.gov.br/NFeConsultaProtocolo/NFeConsultaProtocolo.asmx",
		},
		"SP": {
			Distribution: "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
			Consultation: "https://nfe.fazenda.sp.gov.br/ws/nfeconsultaprotocolo4.asmx",
		},
		"RS": {
			Distribution: "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
			Consultation: "https://nfe.sefazrs.rs.gov.br/ws/NfeConsulta/NfeConsulta4.asmx",
		},
	}
}

var authorizerCodes = map[string]string{
	"RS": "43",
	"SC": "42",
	"SP": "35",
}

// AuthorizerCode returns the cUFAutor value for a region code, or the
// national environment code for unknown regions.
func AuthorizerCode(uf string) string {
	if code, ok := authorizerCodes[strings.ToUpper(strings.TrimSpace(uf))]; ok {
		return code
	}
	return "91"
}

// NormalizeUF uppercases a region code and maps anything outside the known
// set to the national environment.
func NormalizeUF(uf string) string {
	up := strings.ToUpper(strings.TrimSpace(uf))
	if up == NationalEnvironment {
		return up
	}
	if _, ok := authorizerCodes[up]; ok {
		return up
	}
	return NationalEnvironment
}
